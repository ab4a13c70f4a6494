// internal/repository/postgres/wallet_pg.go
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

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, balance, currency, status, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() repository.WalletRepository {
	return &WalletRepository{}
}

// GetOrCreateWallet inserts an empty wallet unless the user already has one, then reads it back.
// The UNIQUE constraint on user_id makes concurrent first access create a single row.
func (r *WalletRepository) GetOrCreateWallet(ctx context.Context, q repository.DBExecutor, userID, currency string) (*domain.Wallet, error) {
	wallet := domain.NewWallet(userID, currency)
	query := `INSERT INTO wallets (` + walletColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (user_id) DO NOTHING`
	_, err := q.ExecContext(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.Balance,
		wallet.Currency,
		wallet.Status,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}
	return r.GetWalletByUserID(ctx, q, userID)
}

// GetWalletByUserID retrieves a wallet by its owner using the provided DBExecutor.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by user ID %s: %w", userID, err)
	}
	return &wallet, nil
}

// LockWallets takes row locks on the wallets of userIDs. Rows are locked in user_id
// order so two transfers between the same pair of users cannot deadlock.
func (r *WalletRepository) LockWallets(ctx context.Context, q repository.DBExecutor, userIDs ...string) ([]domain.Wallet, error) {
	unique := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ids = append(ids, id)
	}

	wallets := []domain.Wallet{}
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = ANY($1) ORDER BY user_id FOR UPDATE`
	if err := q.SelectContext(ctx, &wallets, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to lock wallets: %w", err)
	}
	if len(wallets) != len(ids) {
		return nil, util.ErrWalletNotFound
	}
	return wallets, nil
}

// DebitWallet subtracts amount from the wallet only when the balance covers it.
func (r *WalletRepository) DebitWallet(ctx context.Context, q repository.DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	if !domain.IsValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	var wallet domain.Wallet
	query := `UPDATE wallets SET balance = balance - $1, updated_at = $2
              WHERE user_id = $3 AND balance >= $1
              RETURNING ` + walletColumns
	err := q.GetContext(ctx, &wallet, query, amount, time.Now().UTC(), userID)
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to debit wallet of user %s: %w", userID, err)
	}

	// No row updated: either the wallet is missing or the guard rejected the debit.
	if _, getErr := r.GetWalletByUserID(ctx, q, userID); getErr != nil {
		return nil, getErr
	}
	return nil, util.ErrInsufficientBalance
}

// CreditWallet adds amount to the wallet balance.
func (r *WalletRepository) CreditWallet(ctx context.Context, q repository.DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	if !domain.IsValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	var wallet domain.Wallet
	query := `UPDATE wallets SET balance = balance + $1, updated_at = $2
              WHERE user_id = $3
              RETURNING ` + walletColumns
	err := q.GetContext(ctx, &wallet, query, amount, time.Now().UTC(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to credit wallet of user %s: %w", userID, err)
	}
	return &wallet, nil
}
