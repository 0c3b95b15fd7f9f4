package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/nkas/pkg/adapters/redis"
	"github.com/aretw0/nkas/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*redis.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewLocker(client, "nkas:"), mr
}

func TestLocker_Contract(t *testing.T) {
	locker, _ := newLocker(t)
	tests.ProfileLockerContractTest(t, locker)
}

func TestLocker_KeyHoldsToken(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "nkas_user2", 5*time.Second)
	require.NoError(t, err)

	assert.True(t, mr.Exists("nkas:lock:nkas_user2"))
	token, err := mr.Get("nkas:lock:nkas_user2")
	require.NoError(t, err)
	assert.Len(t, token, 36)
	assert.Equal(t, 5*time.Second, mr.TTL("nkas:lock:nkas_user2"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("nkas:lock:nkas_user2"))
}

func TestLocker_UnlockAfterExpiryReportsLost(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "nkas", time.Minute)
	require.NoError(t, err)

	// Another session took the profile after our lock expired.
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("nkas:lock:nkas", "someone-else"))

	require.ErrorIs(t, unlock(ctx), redis.ErrLockLost)
	got, _ := mr.Get("nkas:lock:nkas")
	assert.Equal(t, "someone-else", got)
}
