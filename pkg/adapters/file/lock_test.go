package file_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/aretw0/nkas/pkg/adapters/file"
	"github.com/aretw0/nkas/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Contract(t *testing.T) {
	tests.ProfileLockerContractTest(t, file.NewLocker(t.TempDir()))
}

func TestLocker_WritesOwner(t *testing.T) {
	locker := file.NewLocker(t.TempDir())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "nkas", time.Minute)
	require.NoError(t, err)

	owner, err := file.ReadOwner(locker.Path("nkas"))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), owner.PID)
	assert.Len(t, owner.Token, 36)

	require.NoError(t, unlock(ctx))
	assert.NoFileExists(t, locker.Path("nkas"))
}

func TestLocker_TakesOverStaleLock(t *testing.T) {
	locker := file.NewLocker(t.TempDir())
	ctx := context.Background()
	path := locker.Path("nkas")

	require.NoError(t, os.WriteFile(path, []byte(`{"token":"crashed-session"}`), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock, err := locker.Lock(waitCtx, "nkas", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocker_UnlockAfterTakeoverReportsLost(t *testing.T) {
	locker := file.NewLocker(t.TempDir())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "nkas", time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(locker.Path("nkas"), []byte(`{"token":"other"}`), 0644))

	require.ErrorIs(t, unlock(ctx), file.ErrLockLost)
}

func TestLocker_RejectsPathLikeProfiles(t *testing.T) {
	locker := file.NewLocker(t.TempDir())

	for _, p := range []string{"", "..", "a/b", `a\b`} {
		_, err := locker.Lock(context.Background(), p, time.Minute)
		assert.Error(t, err, p)
	}
}
