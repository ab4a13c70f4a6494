// internal/service/user_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
	"paynow-wallet/pkg/db"
)

// RegisterInput carries the fields needed to open an account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
}

// UserService covers registration and authentication.
type UserService interface {
	// Register creates the user and an empty wallet in one transaction.
	Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.Wallet, error)
	// LoginWithPassword authenticates by email or mobile and password.
	LoginWithPassword(ctx context.Context, identifier, password string) (*domain.User, error)
	// RequestLoginOTP sends a LOGIN code to the user.
	RequestLoginOTP(ctx context.Context, identifier string) error
	// LoginWithOTP authenticates with a LOGIN code.
	LoginWithOTP(ctx context.Context, identifier, code string) (*domain.User, error)
	// RequestPasswordReset sends a PASSWORD_RESET code to the user.
	RequestPasswordReset(ctx context.Context, identifier string) error
	// ResetPassword replaces the password after checking a PASSWORD_RESET code.
	ResetPassword(ctx context.Context, identifier, code, newPassword string) error
	// GetUser returns a user by ID.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UserServiceDeps collects the collaborators of the user service.
type UserServiceDeps struct {
	DBBeginner db.DBTxBeginner
	DBExecutor repository.DBExecutor
	UserRepo   repository.UserRepository
	WalletRepo repository.WalletRepository
	OTP        OTPService
	Hasher     util.PasswordHasher
	Currency   string
	Logger     *slog.Logger

	BeginTx    db.BeginTxFunc
	CommitTx   db.CommitTxFunc
	RollbackTx db.RollbackTxFunc
}

type userService struct {
	dbBeginner db.DBTxBeginner
	dbExecutor repository.DBExecutor
	userRepo   repository.UserRepository
	walletRepo repository.WalletRepository
	otp        OTPService
	hasher     util.PasswordHasher
	currency   string
	logger     *slog.Logger
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	now        func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(deps UserServiceDeps) UserService {
	currency := deps.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &userService{
		dbBeginner: deps.DBBeginner,
		dbExecutor: deps.DBExecutor,
		userRepo:   deps.UserRepo,
		walletRepo: deps.WalletRepo,
		otp:        deps.OTP,
		hasher:     deps.Hasher,
		currency:   currency,
		logger:     deps.Logger,
		beginTx:    deps.BeginTx,
		commitTx:   deps.CommitTx,
		rollbackTx: deps.RollbackTx,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.Wallet, error) {
	if in.FirstName == "" || in.Email == "" || in.Mobile == "" || in.Password == "" {
		return nil, nil, util.ErrInvalidInput
	}

	for _, identifier := range []string{in.Email, in.Mobile} {
		_, err := s.userRepo.GetUserByEmailOrMobile(ctx, s.dbExecutor, identifier)
		if err == nil {
			return nil, nil, fmt.Errorf("register: %s already registered: %w", identifier, util.ErrDuplicateEntry)
		}
		if !util.IsError(err, util.ErrNotFound) {
			return nil, nil, fmt.Errorf("register: failed to check existing user: %w", err)
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}
	user := domain.NewUser(in.FirstName, in.LastName, in.Email, in.Mobile, hash)

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("register: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("register: transaction controller does not implement DBExecutor")
	}

	if err := s.userRepo.CreateUser(ctx, txExecutor, user); err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}
	wallet, err := s.walletRepo.GetOrCreateWallet(ctx, txExecutor, user.ID, s.currency)
	if err != nil {
		return nil, nil, fmt.Errorf("register: failed to create wallet: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("register: failed to commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, wallet, nil
}

func (s *userService) LoginWithPassword(ctx context.Context, identifier, password string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByEmailOrMobile(ctx, s.dbExecutor, identifier)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, util.ErrInvalidCredentials
	}
	return s.completeLogin(ctx, user)
}

func (s *userService) RequestLoginOTP(ctx context.Context, identifier string) error {
	user, err := s.findActive(ctx, identifier)
	if err != nil {
		return fmt.Errorf("login otp: %w", err)
	}
	return s.otp.IssueAndDeliver(ctx, user, domain.OTPPurposeLogin)
}

func (s *userService) LoginWithOTP(ctx context.Context, identifier, code string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByEmailOrMobile(ctx, s.dbExecutor, identifier)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.otp.Verify(ctx, user.ID, code, domain.OTPPurposeLogin)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return nil, util.ErrOTPInvalid
	}
	return s.completeLogin(ctx, user)
}

func (s *userService) RequestPasswordReset(ctx context.Context, identifier string) error {
	user, err := s.findActive(ctx, identifier)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return s.otp.IssueAndDeliver(ctx, user, domain.OTPPurposePasswordReset)
}

func (s *userService) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	if newPassword == "" {
		return util.ErrInvalidInput
	}
	user, err := s.findActive(ctx, identifier)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	ok, err := s.otp.Verify(ctx, user.ID, code, domain.OTPPurposePasswordReset)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	if !ok {
		return util.ErrOTPInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, s.dbExecutor, user.ID, hash); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, s.dbExecutor, id)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *userService) findActive(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByEmailOrMobile(ctx, s.dbExecutor, identifier)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, util.ErrUserInactive
	}
	return user, nil
}

func (s *userService) completeLogin(ctx context.Context, user *domain.User) (*domain.User, error) {
	if !user.IsActive() {
		return nil, util.ErrUserInactive
	}
	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, s.dbExecutor, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user.LastLoginAt = &now
	return user, nil
}
