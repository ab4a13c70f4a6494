// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"paynow-wallet/internal/domain"
)

// TransactionRepository defines the interface for ledger data operations.
type TransactionRepository interface {
	// CreateTransaction inserts a new transaction record.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// UpdateTransactionStatus moves a PENDING transaction to status.
	// A transaction that is no longer PENDING yields util.ErrInvalidStateTransition.
	UpdateTransactionStatus(ctx context.Context, q DBExecutor, id string, status domain.TransactionStatus, completedAt *time.Time) error
	// GetTransactionByID retrieves a single transaction.
	GetTransactionByID(ctx context.Context, q DBExecutor, id string) (*domain.Transaction, error)
	// GetTransactionsByUserID returns the user's transactions newest first and the total count.
	// A limit of zero or less returns every row.
	GetTransactionsByUserID(ctx context.Context, q DBExecutor, userID string, limit, offset int) ([]domain.Transaction, int64, error)
}
