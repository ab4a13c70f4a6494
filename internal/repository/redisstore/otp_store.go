// internal/repository/redisstore/otp_store.go
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "otp"

// luaConsume compares the code and the expiry and deletes the hash in one step.
// KEYS[1] = record key, ARGV[1] = code, ARGV[2] = now in unix milliseconds.
const luaConsume = `
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return 0
end
if code ~= ARGV[1] then
  return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'exp'))
if not exp or tonumber(ARGV[2]) >= exp then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`

// OTPStore is a repository.OTPStore backed by one Redis hash per (subject, purpose).
// Redis key expiry reclaims abandoned codes.
type OTPStore struct {
	client    redis.UniversalClient
	namespace string
	consume   *redis.Script
}

// NewOTPStore creates a store that prefixes every key with namespace.
func NewOTPStore(client redis.UniversalClient, namespace string) *OTPStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &OTPStore{
		client:    client,
		namespace: namespace,
		consume:   redis.NewScript(luaConsume),
	}
}

var _ repository.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) key(subject string, purpose domain.OTPPurpose) string {
	return s.namespace + ":" + domain.OTPKey(subject, purpose)
}

func (s *OTPStore) Save(ctx context.Context, otp domain.OTP, ttl time.Duration) error {
	key := s.key(otp.Subject, otp.Purpose)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", otp.Code, "exp", strconv.FormatInt(otp.ExpiresAt.UnixMilli(), 10))
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store otp for %s: %w", otp.Key(), err)
	}
	return nil
}

func (s *OTPStore) Consume(ctx context.Context, subject string, purpose domain.OTPPurpose, code string, now time.Time) (bool, error) {
	res, err := s.consume.Run(ctx, s.client, []string{s.key(subject, purpose)}, code, now.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to verify otp for %s: %w", domain.OTPKey(subject, purpose), err)
	}
	return res == 1, nil
}

// PurgeExpired is a no-op: Redis drops each record when its key TTL elapses.
func (s *OTPStore) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
