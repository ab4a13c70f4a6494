// internal/repository/otp_store.go
package repository

import (
	"context"
	"time"

	"paynow-wallet/internal/domain"
)

// OTPStore keeps at most one live code per (subject, purpose).
type OTPStore interface {
	// Save stores otp, replacing any previous code for the same key. ttl bounds how long
	// the backing store keeps the record around.
	Save(ctx context.Context, otp domain.OTP, ttl time.Duration) error
	// Consume atomically checks code against the stored record and deletes it on a match.
	// It returns false, leaving the record untouched, if there is no record, the code
	// differs or the record is expired at now.
	Consume(ctx context.Context, subject string, purpose domain.OTPPurpose, code string, now time.Time) (bool, error)
	// PurgeExpired removes records expired at now and reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
