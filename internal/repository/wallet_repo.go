// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"paynow-wallet/internal/domain"

	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// GetOrCreateWallet returns the user's wallet, creating an empty one on first access.
	// Concurrent first accesses create exactly one wallet.
	GetOrCreateWallet(ctx context.Context, q DBExecutor, userID, currency string) (*domain.Wallet, error)
	// GetWalletByUserID retrieves a wallet by its owner. A missing wallet yields util.ErrWalletNotFound.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID string) (*domain.Wallet, error)
	// LockWallets locks the wallets of the given users for the rest of the transaction,
	// always in user id order.
	LockWallets(ctx context.Context, q DBExecutor, userIDs ...string) ([]domain.Wallet, error)
	// DebitWallet subtracts amount only if the balance covers it.
	DebitWallet(ctx context.Context, q DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error)
	// CreditWallet adds amount to the balance.
	CreditWallet(ctx context.Context, q DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error)
}
