// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
)

const (
	systemDisplayName  = "System"
	unknownDisplayName = "Unknown User"
)

// LedgerService records transactions and drives each one through exactly one terminal transition.
// Methods taking a DBExecutor run inside the caller's transaction when given one.
type LedgerService interface {
	// Record persists tx in PENDING state.
	Record(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error
	// Complete marks tx COMPLETED and stamps its completion time.
	Complete(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error
	// Fail marks tx FAILED.
	Fail(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error
	// RequireReconciliation marks tx RECONCILIATION_REQUIRED.
	RequireReconciliation(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error
	// Get reads the stored state of the transaction with the given id.
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	// HistoryFor lists the user's transactions, newest first, with counterparty names filled in.
	HistoryFor(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error)
}

type ledgerService struct {
	dbExecutor      repository.DBExecutor
	transactionRepo repository.TransactionRepository
	users           repository.UserDirectory
	logger          *slog.Logger
}

// NewLedgerService creates a new LedgerService. dbExecutor serves history reads.
func NewLedgerService(
	dbExecutor repository.DBExecutor,
	transactionRepo repository.TransactionRepository,
	users repository.UserDirectory,
	logger *slog.Logger,
) LedgerService {
	return &ledgerService{
		dbExecutor:      dbExecutor,
		transactionRepo: transactionRepo,
		users:           users,
		logger:          logger,
	}
}

func (s *ledgerService) Record(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	if !domain.IsValidAmount(tx.Amount) {
		return util.ErrInvalidAmount
	}
	if tx.Status != domain.TransactionStatusPending {
		return fmt.Errorf("record %s: status %s: %w", tx.ReferenceNumber, tx.Status, util.ErrInvalidStateTransition)
	}
	if err := s.transactionRepo.CreateTransaction(ctx, q, tx); err != nil {
		return fmt.Errorf("record %s: %w", tx.ReferenceNumber, err)
	}
	return nil
}

func (s *ledgerService) Complete(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	now := time.Now().UTC()
	return s.transition(ctx, q, tx, domain.TransactionStatusCompleted, &now)
}

func (s *ledgerService) Fail(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	return s.transition(ctx, q, tx, domain.TransactionStatusFailed, nil)
}

func (s *ledgerService) RequireReconciliation(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	return s.transition(ctx, q, tx, domain.TransactionStatusReconciliationRequired, nil)
}

func (s *ledgerService) transition(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction, status domain.TransactionStatus, completedAt *time.Time) error {
	if err := s.transactionRepo.UpdateTransactionStatus(ctx, q, tx.ID, status, completedAt); err != nil {
		return fmt.Errorf("mark %s %s: %w", tx.ReferenceNumber, status, err)
	}
	tx.Status = status
	tx.CompletedAt = completedAt
	return nil
}

func (s *ledgerService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.transactionRepo.GetTransactionByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *ledgerService) HistoryFor(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions, total, err := s.transactionRepo.GetTransactionsByUserID(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	names := map[string]string{}
	for i := range transactions {
		transactions[i].FromUserName = s.displayName(ctx, names, transactions[i].FromUserID)
		transactions[i].ToUserName = s.displayName(ctx, names, transactions[i].ToUserID)
	}
	return transactions, total, nil
}

// displayName resolves a party id to a name, caching lookups for the duration of one history call.
func (s *ledgerService) displayName(ctx context.Context, cache map[string]string, userID string) string {
	if userID == domain.SystemParty {
		return systemDisplayName
	}
	if name, ok := cache[userID]; ok {
		return name
	}

	name := unknownDisplayName
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		name = user.DisplayName()
	case !util.IsError(err, util.ErrUserNotFound):
		s.logger.WarnContext(ctx, "failed to resolve transaction party", "user_id", userID, "error", err)
	}
	cache[userID] = name
	return name
}
