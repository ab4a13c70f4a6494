// internal/domain/transaction.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// SystemParty marks the non-user side of deposits and withdrawals.
const SystemParty = "SYSTEM"

// TransactionType defines the type of a financial transaction.
type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

// ReferencePrefix returns the prefix used for reference numbers of this type.
func (t TransactionType) ReferencePrefix() string {
	switch t {
	case TransactionTypeDeposit:
		return "DEP"
	case TransactionTypeWithdraw:
		return "WDR"
	default:
		return "REF"
	}
}

// TransactionStatus defines the status of a financial transaction.
type TransactionStatus string

const (
	TransactionStatusPending                TransactionStatus = "PENDING"
	TransactionStatusCompleted              TransactionStatus = "COMPLETED"
	TransactionStatusFailed                 TransactionStatus = "FAILED"
	TransactionStatusReconciliationRequired TransactionStatus = "RECONCILIATION_REQUIRED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

// Transaction is an immutable-once-terminal ledger record.
type Transaction struct {
	ID              string            `db:"id" json:"id"`
	FromUserID      string            `db:"from_user_id" json:"from_user_id"`
	ToUserID        string            `db:"to_user_id" json:"to_user_id"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"` // NUMERIC(20, 4), always positive
	Currency        string            `db:"currency" json:"currency"`
	Type            TransactionType   `db:"type" json:"type"`
	Status          TransactionStatus `db:"status" json:"status"`
	Description     string            `db:"description" json:"description"`
	ReferenceNumber string            `db:"reference_number" json:"reference_number"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completed_at,omitempty"`

	// Display-only, filled in by transaction history.
	FromUserName string `db:"-" json:"from_user_name,omitempty"`
	ToUserName   string `db:"-" json:"to_user_name,omitempty"`
}

// NewTransaction creates a PENDING transaction with a fresh reference number.
func NewTransaction(
	txType TransactionType,
	fromUserID string,
	toUserID string,
	amount decimal.Decimal,
	currency string,
	description string,
) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:              uuid.NewString(),
		FromUserID:      fromUserID,
		ToUserID:        toUserID,
		Amount:          amount,
		Currency:        currency,
		Type:            txType,
		Status:          TransactionStatusPending,
		Description:     strings.TrimSpace(description),
		ReferenceNumber: NewReferenceNumber(txType),
		CreatedAt:       now,
	}
}

// NewReferenceNumber builds a unique, time-ordered reference such as "REF01J9...".
func NewReferenceNumber(txType TransactionType) string {
	return txType.ReferencePrefix() + ulid.Make().String()
}

// Involves reports whether userID is the sender or the receiver.
func (t *Transaction) Involves(userID string) bool {
	return t.FromUserID == userID || t.ToUserID == userID
}
