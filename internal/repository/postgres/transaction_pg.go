// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
)

const transactionColumns = `id, from_user_id, to_user_id, amount, currency, type, status, description, reference_number, created_at, completed_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction inserts a new transaction record into the database using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.FromUserID,
		transaction.ToUserID,
		transaction.Amount,
		transaction.Currency,
		transaction.Type,
		transaction.Status,
		transaction.Description,
		transaction.ReferenceNumber,
		transaction.CreatedAt,
		transaction.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create transaction %s: %w", transaction.ReferenceNumber, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// UpdateTransactionStatus moves a PENDING transaction into status. The PENDING guard in the
// WHERE clause makes every terminal transition happen at most once.
func (r *TransactionRepository) UpdateTransactionStatus(ctx context.Context, q repository.DBExecutor, id string, status domain.TransactionStatus, completedAt *time.Time) error {
	query := `UPDATE transactions SET status = $1, completed_at = $2
              WHERE id = $3 AND status = $4`
	result, err := q.ExecContext(ctx, query, status, completedAt, id, domain.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating transaction %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s -> %s: %w", id, status, util.ErrInvalidStateTransition)
	}
	return nil
}

// GetTransactionByID retrieves a single transaction using the provided DBExecutor.
func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Transaction, error) {
	var transaction domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := q.GetContext(ctx, &transaction, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &transaction, nil
}

// GetTransactionsByUserID retrieves a paginated list of transactions sent or received by a user.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) GetTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions := []domain.Transaction{}

	// LIMIT NULL means no limit in PostgreSQL.
	var pageSize *int
	if limit > 0 {
		pageSize = &limit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &transactions, query, userID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for user %s: %w", userID, err)
	}

	var totalCount int64
	countQuery := `
		SELECT COUNT(*)
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count for user %s: %w", userID, err)
	}

	return transactions, totalCount, nil
}
