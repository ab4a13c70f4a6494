// internal/domain/otp.go
package domain

import "time"

// OTPPurpose scopes a one-time code to a single kind of action.
type OTPPurpose string

const (
	OTPPurposeLogin         OTPPurpose = "LOGIN"
	OTPPurposePasswordReset OTPPurpose = "PASSWORD_RESET"
	OTPPurposeTransaction   OTPPurpose = "TRANSACTION"
	OTPPurposeAddMoney      OTPPurpose = "ADD_MONEY"
	OTPPurposeWithdraw      OTPPurpose = "WITHDRAW"
)

// IsValid reports whether p is a known purpose.
func (p OTPPurpose) IsValid() bool {
	switch p {
	case OTPPurposeLogin, OTPPurposePasswordReset, OTPPurposeTransaction, OTPPurposeAddMoney, OTPPurposeWithdraw:
		return true
	}
	return false
}

// IsMoneyMovement reports whether p authorizes a wallet operation.
func (p OTPPurpose) IsMoneyMovement() bool {
	return p == OTPPurposeTransaction || p == OTPPurposeAddMoney || p == OTPPurposeWithdraw
}

// OTP is a live one-time code. At most one exists per (Subject, Purpose).
type OTP struct {
	Subject   string
	Purpose   OTPPurpose
	Code      string
	ExpiresAt time.Time
}

// Key identifies the record slot shared by all codes for the same subject and purpose.
func (o OTP) Key() string {
	return OTPKey(o.Subject, o.Purpose)
}

// IsExpired reports whether the code is no longer valid at now.
// A code is valid only while now is strictly before ExpiresAt.
func (o OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPKey returns the storage key for a subject and purpose.
func OTPKey(subject string, purpose OTPPurpose) string {
	return subject + "_" + string(purpose)
}
