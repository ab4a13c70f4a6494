// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrSameWalletTransfer = errors.New("cannot transfer to the same wallet")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEntry     = errors.New("duplicate entry") // e.g. registering an email or mobile that is already taken

	// Money movement.
	ErrOTPInvalid             = errors.New("invalid or expired otp")
	ErrReceiverNotFound       = errors.New("receiver not found")
	ErrInvalidAmount          = errors.New("amount must be greater than zero with at most two decimal places")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrWalletInactive         = errors.New("wallet is not active")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrReconciliationRequired = errors.New("transfer requires manual reconciliation")
	ErrInvalidStateTransition = errors.New("invalid transaction state transition")

	// Authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidPurpose     = errors.New("invalid otp purpose")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
