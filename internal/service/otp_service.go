// internal/service/otp_service.go
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/metrics"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
)

const (
	// DefaultOTPTTL is how long an issued code stays valid.
	DefaultOTPTTL = 5 * time.Minute
	otpDigits     = 6
)

// OTPDeliverer hands an issued code to the user. Delivery is best-effort.
type OTPDeliverer interface {
	DeliverOTP(ctx context.Context, user *domain.User, purpose domain.OTPPurpose, code string, ttl time.Duration)
}

// OTPService issues and verifies single-use, purpose-scoped one-time codes.
type OTPService interface {
	// Issue creates a fresh code for (subject, purpose), replacing any earlier one.
	Issue(ctx context.Context, subject string, purpose domain.OTPPurpose) (string, error)
	// IssueAndDeliver issues a code for the user and sends it by email and SMS.
	IssueAndDeliver(ctx context.Context, user *domain.User, purpose domain.OTPPurpose) error
	// Verify reports whether code is the live code for (subject, purpose) and consumes it if so.
	Verify(ctx context.Context, subject, code string, purpose domain.OTPPurpose) (bool, error)
	// PurgeExpired drops expired codes and reports how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}

type otpService struct {
	store     repository.OTPStore
	deliverer OTPDeliverer
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// OTPOption customizes an OTPService.
type OTPOption func(*otpService)

// WithClock replaces time.Now, letting tests control expiry.
func WithClock(now func() time.Time) OTPOption {
	return func(s *otpService) { s.now = now }
}

// NewOTPService creates an OTPService. A non-positive ttl falls back to DefaultOTPTTL.
func NewOTPService(store repository.OTPStore, deliverer OTPDeliverer, ttl time.Duration, logger *slog.Logger, opts ...OTPOption) OTPService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	s := &otpService{
		store:     store,
		deliverer: deliverer,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *otpService) Issue(ctx context.Context, subject string, purpose domain.OTPPurpose) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue otp: empty subject: %w", util.ErrInvalidInput)
	}
	if !purpose.IsValid() {
		return "", fmt.Errorf("issue otp: %q: %w", purpose, util.ErrInvalidPurpose)
	}

	code, err := randomCode(otpDigits)
	if err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	otp := domain.OTP{
		Subject:   subject,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Save(ctx, otp, s.ttl); err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	metrics.OTPsIssued.WithLabelValues(string(purpose)).Inc()
	s.logger.DebugContext(ctx, "otp issued", "subject", subject, "purpose", purpose, "expires_at", otp.ExpiresAt)
	return code, nil
}

func (s *otpService) IssueAndDeliver(ctx context.Context, user *domain.User, purpose domain.OTPPurpose) error {
	code, err := s.Issue(ctx, user.ID, purpose)
	if err != nil {
		return err
	}
	if s.deliverer != nil {
		s.deliverer.DeliverOTP(ctx, user, purpose, code, s.ttl)
	}
	return nil
}

func (s *otpService) Verify(ctx context.Context, subject, code string, purpose domain.OTPPurpose) (bool, error) {
	if subject == "" || code == "" {
		metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.Result(false)).Inc()
		return false, nil
	}

	ok, err := s.store.Consume(ctx, subject, purpose, code, s.now())
	if err != nil {
		return false, fmt.Errorf("verify otp: %w", err)
	}
	metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.Result(ok)).Inc()
	return ok, nil
}

func (s *otpService) PurgeExpired(ctx context.Context) (int, error) {
	removed, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired otps: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired otps purged", "count", removed)
	}
	return removed, nil
}

// randomCode returns a uniformly distributed, zero-padded decimal code of the given length.
func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
