// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/metrics"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
	"paynow-wallet/pkg/db"

	"github.com/shopspring/decimal"
)

const (
	defaultDepositDescription  = "Balance added"
	defaultWithdrawDescription = "Balance withdrawn"
)

// TransactionNotifier is told about every completed transaction. It must not block.
type TransactionNotifier interface {
	TransactionCompleted(tx domain.Transaction)
}

// WalletService defines the interface for wallet-related business logic.
type WalletService interface {
	// Transfer moves amount from the sender to the user registered under toUserEmail.
	// otpCode must be the sender's live TRANSACTION code.
	Transfer(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error)
	// Deposit credits the user's wallet from SYSTEM. otpCode must be a live ADD_MONEY code.
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error)
	// Withdraw debits the user's wallet to SYSTEM. otpCode must be a live WITHDRAW code.
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error)

	// TransferUnverified is Transfer without the OTP check.
	//
	// Deprecated: use Transfer.
	TransferUnverified(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description string) (*domain.Transaction, error)
	// DepositUnverified is Deposit without the OTP check.
	//
	// Deprecated: use Deposit.
	DepositUnverified(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error)

	// GetBalance returns the user's wallet, creating an empty one on first access.
	GetBalance(ctx context.Context, userID string) (*domain.Wallet, error)
	// GetTransactionHistory returns the user's transactions newest first and the total count.
	GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error)
	// RequestTransactionOTP issues and delivers a code for a money movement purpose.
	RequestTransactionOTP(ctx context.Context, userID string, purpose domain.OTPPurpose) error
}

// WalletServiceDeps collects the collaborators of the wallet service.
type WalletServiceDeps struct {
	DBBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	DBExecutor repository.DBExecutor // For non-transactional work (e.g., *sqlx.DB)
	WalletRepo repository.WalletRepository
	Users      repository.UserDirectory
	Ledger     LedgerService
	OTP        OTPService
	Notifier   TransactionNotifier
	Currency   string
	Logger     *slog.Logger

	BeginTx    db.BeginTxFunc
	CommitTx   db.CommitTxFunc
	RollbackTx db.RollbackTxFunc
}

// walletService implements the WalletService interface.
type walletService struct {
	dbBeginner db.DBTxBeginner
	dbExecutor repository.DBExecutor
	walletRepo repository.WalletRepository
	users      repository.UserDirectory
	ledger     LedgerService
	otp        OTPService
	notifier   TransactionNotifier
	currency   string
	logger     *slog.Logger
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(deps WalletServiceDeps) WalletService {
	currency := deps.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &walletService{
		dbBeginner: deps.DBBeginner,
		dbExecutor: deps.DBExecutor,
		walletRepo: deps.WalletRepo,
		users:      deps.Users,
		ledger:     deps.Ledger,
		otp:        deps.OTP,
		notifier:   deps.Notifier,
		currency:   currency,
		logger:     deps.Logger,
		beginTx:    deps.BeginTx,
		commitTx:   deps.CommitTx,
		rollbackTx: deps.RollbackTx,
	}
}

func (s *walletService) Transfer(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	if err := s.verifyOTP(ctx, fromUserID, otpCode, domain.OTPPurposeTransaction); err != nil {
		return nil, err
	}
	return s.transfer(ctx, fromUserID, toUserEmail, amount, description)
}

func (s *walletService) TransferUnverified(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return s.transfer(ctx, fromUserID, toUserEmail, amount, description)
}

func (s *walletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	if err := s.verifyOTP(ctx, userID, otpCode, domain.OTPPurposeAddMoney); err != nil {
		return nil, err
	}
	return s.deposit(ctx, userID, amount, description)
}

func (s *walletService) DepositUnverified(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return s.deposit(ctx, userID, amount, description)
}

func (s *walletService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description, otpCode string) (*domain.Transaction, error) {
	if err := s.verifyOTP(ctx, userID, otpCode, domain.OTPPurposeWithdraw); err != nil {
		return nil, err
	}
	return s.withdraw(ctx, userID, amount, description)
}

func (s *walletService) verifyOTP(ctx context.Context, subject, code string, purpose domain.OTPPurpose) error {
	ok, err := s.otp.Verify(ctx, subject, code, purpose)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		return util.ErrOTPInvalid
	}
	return nil
}

func (s *walletService) transfer(ctx context.Context, fromUserID, toUserEmail string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	start := time.Now()

	receiver, err := s.users.FindByEmailOrMobile(ctx, toUserEmail)
	if err != nil {
		if util.IsError(err, util.ErrUserNotFound) {
			return nil, util.ErrReceiverNotFound
		}
		return nil, fmt.Errorf("transfer: failed to resolve receiver: %w", err)
	}
	if !domain.IsValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}
	if receiver.ID == fromUserID {
		return nil, util.ErrSameWalletTransfer
	}

	sender, err := s.walletFor(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	if _, err := s.walletFor(ctx, receiver.ID); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	if !sender.HasSufficientBalance(amount) {
		return nil, util.ErrInsufficientBalance
	}

	record := domain.NewTransaction(domain.TransactionTypeTransfer, fromUserID, receiver.ID, amount, s.currency, description)
	if err := s.ledger.Record(ctx, s.dbExecutor, record); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	err = s.settle(ctx, record, fromUserID, []string{fromUserID, receiver.ID}, func(q repository.DBExecutor) error {
		if _, err := s.walletRepo.DebitWallet(ctx, q, fromUserID, amount); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if _, err := s.walletRepo.CreditWallet(ctx, q, receiver.ID, amount); err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, record, start)
	return record, nil
}

func (s *walletService) deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	start := time.Now()

	if !domain.IsValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if _, err := s.walletFor(ctx, userID); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	if description == "" {
		description = defaultDepositDescription
	}
	record := domain.NewTransaction(domain.TransactionTypeDeposit, domain.SystemParty, userID, amount, s.currency, description)
	if err := s.ledger.Record(ctx, s.dbExecutor, record); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	err := s.settle(ctx, record, "", []string{userID}, func(q repository.DBExecutor) error {
		if _, err := s.walletRepo.CreditWallet(ctx, q, userID, amount); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, record, start)
	return record, nil
}

func (s *walletService) withdraw(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	start := time.Now()

	if !domain.IsValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	wallet, err := s.walletFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if !wallet.HasSufficientBalance(amount) {
		return nil, util.ErrInsufficientBalance
	}

	if description == "" {
		description = defaultWithdrawDescription
	}
	record := domain.NewTransaction(domain.TransactionTypeWithdraw, userID, domain.SystemParty, amount, s.currency, description)
	if err := s.ledger.Record(ctx, s.dbExecutor, record); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	err = s.settle(ctx, record, userID, []string{userID}, func(q repository.DBExecutor) error {
		if _, err := s.walletRepo.DebitWallet(ctx, q, userID, amount); err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, record, start)
	return record, nil
}

// walletFor returns the user's wallet, creating it on first access, and rejects inactive ones.
// The balance it reports is unlocked and only good for an early rejection.
func (s *walletService) walletFor(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetOrCreateWallet(ctx, s.dbExecutor, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet of user %s: %w", userID, err)
	}
	if !wallet.IsActive() {
		return nil, fmt.Errorf("wallet of user %s is %s: %w", userID, wallet.Status, util.ErrWalletInactive)
	}
	return wallet, nil
}

// settle moves the money of a recorded PENDING transaction. It locks the wallets of
// lockIDs, re-checks them and the balance of debitID, then runs mutate, completes record
// and commits, all in one database transaction.
// Only the completion of record joins that transaction; marking it FAILED happens after the
// row locks are released, on a separate connection.
func (s *walletService) settle(ctx context.Context, record *domain.Transaction, debitID string, lockIDs []string, mutate func(q repository.DBExecutor) error) error {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return s.reject(ctx, nil, record, fmt.Errorf("%s: failed to begin transaction: %w", record.Type, err))
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return s.reject(ctx, txController, record, fmt.Errorf("%s: transaction controller does not implement DBExecutor", record.Type))
	}

	wallets, err := s.lockWallets(ctx, txExecutor, lockIDs...)
	if err != nil {
		return s.reject(ctx, txController, record, fmt.Errorf("%s: %w", record.Type, err))
	}
	if debitID != "" {
		wallet := wallets[debitID]
		if !wallet.HasSufficientBalance(record.Amount) {
			return s.reject(ctx, txController, record, util.ErrInsufficientBalance)
		}
	}

	return s.apply(ctx, txController, txExecutor, record, func() error { return mutate(txExecutor) })
}

// lockWallets locks the wallets of userIDs and checks that every one of them is active.
func (s *walletService) lockWallets(ctx context.Context, q repository.DBExecutor, userIDs ...string) (map[string]domain.Wallet, error) {
	wallets, err := s.walletRepo.LockWallets(ctx, q, userIDs...)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]domain.Wallet, len(wallets))
	for _, w := range wallets {
		if !w.IsActive() {
			return nil, fmt.Errorf("wallet of user %s is %s: %w", w.UserID, w.Status, util.ErrWalletInactive)
		}
		byUser[w.UserID] = w
	}
	for _, id := range userIDs {
		if _, ok := byUser[id]; !ok {
			return nil, util.ErrWalletNotFound
		}
	}
	return byUser, nil
}

// reject closes record as FAILED when the settlement stopped before touching any balance.
// cause is returned as is.
func (s *walletService) reject(ctx context.Context, txController db.TxController, record *domain.Transaction, cause error) error {
	if txController != nil {
		if err := s.rollbackTx(txController); err != nil {
			s.logger.WarnContext(ctx, "rollback of unmodified transaction failed", "reference", record.ReferenceNumber, "error", err)
		}
	}
	if err := s.ledger.Fail(ctx, s.dbExecutor, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark transaction failed", "reference", record.ReferenceNumber, "error", err)
	}
	metrics.Transactions.WithLabelValues(string(record.Type), string(domain.TransactionStatusFailed)).Inc()
	s.logger.InfoContext(ctx, "transaction rejected", "reference", record.ReferenceNumber, "error", cause)
	return cause
}

// apply runs mutate, completes record and commits, all inside txController.
// Any failure is handed to abort.
func (s *walletService) apply(ctx context.Context, txController db.TxController, txExecutor repository.DBExecutor, record *domain.Transaction, mutate func() error) error {
	err := mutate()
	if err == nil {
		err = s.ledger.Complete(ctx, txExecutor, record)
	}
	if err != nil {
		return s.abort(ctx, txController, record, err, false)
	}
	if err := s.commitTx(txController); err != nil {
		return s.abort(ctx, txController, record, err, true)
	}
	return nil
}

// abort rolls the balances back and closes record as FAILED. When the rollback itself
// fails the balances are in an unknown state: record is flagged RECONCILIATION_REQUIRED instead.
//
// A failed commit may still have landed. Completion is written in the same transaction,
// so the stored status of record tells which way it went.
func (s *walletService) abort(ctx context.Context, txController db.TxController, record *domain.Transaction, cause error, commitFailed bool) error {
	if rbErr := s.rollbackTx(txController); rbErr != nil {
		return s.reconcile(ctx, record, cause, rbErr)
	}

	failErr := s.ledger.Fail(ctx, s.dbExecutor, record)
	if failErr != nil && commitFailed {
		return s.resolveCommit(ctx, record, cause, failErr)
	}
	if failErr != nil {
		s.logger.ErrorContext(ctx, "failed to mark transaction failed", "reference", record.ReferenceNumber, "error", failErr)
	}
	metrics.Transactions.WithLabelValues(string(record.Type), string(domain.TransactionStatusFailed)).Inc()
	s.logger.WarnContext(ctx, "transaction rolled back", "reference", record.ReferenceNumber, "error", cause)
	return fmt.Errorf("%w: %w", util.ErrTransferFailed, cause)
}

// resolveCommit settles the outcome of a commit that reported an error but whose record
// could not be marked FAILED.
func (s *walletService) resolveCommit(ctx context.Context, record *domain.Transaction, cause, failErr error) error {
	if util.IsError(failErr, util.ErrInvalidStateTransition) {
		stored, err := s.ledger.Get(ctx, record.ID)
		if err == nil && stored.Status == domain.TransactionStatusCompleted {
			record.Status = stored.Status
			record.CompletedAt = stored.CompletedAt
			s.logger.WarnContext(ctx, "commit reported an error but the transaction was applied",
				"reference", record.ReferenceNumber, "error", cause)
			return nil
		}
		if err != nil {
			failErr = err
		}
	}
	return s.reconcile(ctx, record, cause, failErr)
}

// reconcile flags record for manual reconciliation after its outcome became unknown.
func (s *walletService) reconcile(ctx context.Context, record *domain.Transaction, cause, err error) error {
	s.logger.ErrorContext(ctx, "transaction outcome unknown, manual reconciliation required",
		"reference", record.ReferenceNumber,
		"type", record.Type,
		"from_user_id", record.FromUserID,
		"to_user_id", record.ToUserID,
		"amount", record.Amount.String(),
		"cause", cause,
		"error", err,
	)
	if err := s.ledger.RequireReconciliation(ctx, s.dbExecutor, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to flag transaction for reconciliation", "reference", record.ReferenceNumber, "error", err)
	}
	metrics.Transactions.WithLabelValues(string(record.Type), string(domain.TransactionStatusReconciliationRequired)).Inc()
	return fmt.Errorf("%w: reference %s: %w", util.ErrReconciliationRequired, record.ReferenceNumber, cause)
}

func (s *walletService) finish(ctx context.Context, record *domain.Transaction, start time.Time) {
	metrics.Transactions.WithLabelValues(string(record.Type), string(record.Status)).Inc()
	metrics.TransactionDuration.WithLabelValues(string(record.Type)).Observe(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "transaction completed",
		"reference", record.ReferenceNumber,
		"type", record.Type,
		"amount", record.Amount.String(),
	)
	if s.notifier != nil {
		s.notifier.TransactionCompleted(*record)
	}
}

func (s *walletService) GetBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	wallet, err := s.walletRepo.GetOrCreateWallet(ctx, s.dbExecutor, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("get balance: failed to get wallet of user %s: %w", userID, err)
	}
	return wallet, nil
}

// GetTransactionHistory retrieves a paginated list of transactions for a specific user.
func (s *walletService) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, 0, fmt.Errorf("transaction history: %w", err)
	}
	return s.ledger.HistoryFor(ctx, userID, limit, offset)
}

func (s *walletService) RequestTransactionOTP(ctx context.Context, userID string, purpose domain.OTPPurpose) error {
	if !purpose.IsMoneyMovement() {
		return fmt.Errorf("request otp: %q: %w", purpose, util.ErrInvalidPurpose)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("request otp: %w", err)
	}
	if err := s.otp.IssueAndDeliver(ctx, user, purpose); err != nil {
		return fmt.Errorf("request otp: %w", err)
	}
	return nil
}
