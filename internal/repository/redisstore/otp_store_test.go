// internal/repository/redisstore/otp_store_test.go
package redisstore

import (
	"context"
	"testing"
	"time"

	"paynow-wallet/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOTPStore(client, "test-otp"), mr
}

func TestOTPStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	otp := domain.OTP{Subject: "user-1", Purpose: domain.OTPPurposeTransaction, Code: "004211", ExpiresAt: now.Add(5 * time.Minute)}

	t.Run("SaveSetsKeyWithTTL", func(t *testing.T) {
		store, mr := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))

		key := "test-otp:user-1_TRANSACTION"
		assert.True(t, mr.Exists(key))
		assert.Equal(t, "004211", mr.HGet(key, "code"))
		assert.Equal(t, 5*time.Minute, mr.TTL(key))
	})

	t.Run("ConsumeIsSingleUse", func(t *testing.T) {
		store, mr := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))

		ok, err := store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "004211", now)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, mr.Exists("test-otp:user-1_TRANSACTION"))

		ok, err = store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "004211", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WrongCodeKeepsRecord", func(t *testing.T) {
		store, mr := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))

		ok, err := store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "4211", now)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, mr.Exists("test-otp:user-1_TRANSACTION"))
	})

	t.Run("ExpiredByClock", func(t *testing.T) {
		store, mr := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))

		ok, err := store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "004211", otp.ExpiresAt)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, mr.Exists("test-otp:user-1_TRANSACTION"))
	})

	t.Run("ExpiredByTTL", func(t *testing.T) {
		store, mr := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))
		mr.FastForward(5*time.Minute + time.Second)

		ok, err := store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "004211", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, otp, 5*time.Minute))
		second := otp
		second.Code = "999000"
		require.NoError(t, store.Save(ctx, second, 5*time.Minute))

		ok, _ := store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "004211", now)
		assert.False(t, ok)
		ok, _ = store.Consume(ctx, "user-1", domain.OTPPurposeTransaction, "999000", now)
		assert.True(t, ok)
	})

	t.Run("PurgeIsNoop", func(t *testing.T) {
		store, _ := newTestStore(t)
		removed, err := store.PurgeExpired(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
