package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/nkas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProfileLockerContractTest is a reusable test suite that verifies if an adapter complies with
// ports.ProfileLocker.
func ProfileLockerContractTest(t *testing.T, locker ports.ProfileLocker) {
	t.Helper()
	ctx := context.Background()

	t.Run("LockUnlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, unlock)
		require.NoError(t, unlock(ctx))

		// Released locks can be taken again.
		unlock, err = locker.Lock(ctx, "contract-a", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-b", 5*time.Second)
		require.NoError(t, err)
		defer unlock(ctx)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err = locker.Lock(waitCtx, "contract-b", 5*time.Second)

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.WithinDuration(t, start.Add(300*time.Millisecond), time.Now(), 200*time.Millisecond, "should block until the deadline")
	})

	t.Run("ProfilesAreIndependent", func(t *testing.T) {
		unlockC, err := locker.Lock(ctx, "contract-c", 5*time.Second)
		require.NoError(t, err)
		defer unlockC(ctx)

		unlockD, err := locker.Lock(ctx, "contract-d", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlockD(ctx))
	})

	t.Run("UnlockTwice", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-e", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
		assert.NoError(t, unlock(ctx))
	})
}
