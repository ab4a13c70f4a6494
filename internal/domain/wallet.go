// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// DefaultCurrency is the currency assigned to wallets unless configured otherwise.
const DefaultCurrency = "INR"

// AmountScale is the number of decimal places a money amount may carry (paise for INR).
// Balances are stored with more places, so any amount within this scale is stored exactly.
const AmountScale int32 = 2

// IsValidAmount reports whether amount is positive and has no more than AmountScale decimal places.
func IsValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(AmountScale))
}

// WalletStatus defines the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "ACTIVE"
	WalletStatusInactive WalletStatus = "INACTIVE"
	WalletStatusBlocked  WalletStatus = "BLOCKED"
)

// Wallet represents a user's wallet. Each user owns exactly one.
type Wallet struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"` // NUMERIC(20, 4), never negative
	Currency  string          `db:"currency" json:"currency"`
	Status    WalletStatus    `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new active Wallet with a zero balance.
func NewWallet(userID string, currency string) *Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Status:    WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the wallet may send or receive money.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// HasSufficientBalance reports whether amount can be debited without going negative.
func (w *Wallet) HasSufficientBalance(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
