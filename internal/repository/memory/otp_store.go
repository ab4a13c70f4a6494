// internal/repository/memory/otp_store.go
package memory

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"
)

// OTPStore is a process-local repository.OTPStore. Every operation runs under one mutex,
// so overwrite and verify-and-delete are each a single critical section.
type OTPStore struct {
	mu      sync.Mutex
	records map[string]domain.OTP
}

// NewOTPStore creates an empty in-memory store.
func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]domain.OTP)}
}

var _ repository.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) Save(_ context.Context, otp domain.OTP, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[otp.Key()] = otp
	return nil
}

func (s *OTPStore) Consume(_ context.Context, subject string, purpose domain.OTPPurpose, code string, now time.Time) (bool, error) {
	key := domain.OTPKey(subject, purpose)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return false, nil
	}
	if record.IsExpired(now) {
		return false, nil
	}
	delete(s.records, key)
	return true, nil
}

func (s *OTPStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.records {
		if record.IsExpired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored records, expired ones included.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
