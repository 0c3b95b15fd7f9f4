package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a profile lock.
type UnlockFunc func(ctx context.Context) error

// ProfileLocker guarantees that a profile (and therefore its device) is owned by one session.
type ProfileLocker interface {
	// Lock acquires the lock for profile. It blocks until acquired or ctx is done.
	// The returned UnlockFunc MUST be called to release the lock.
	Lock(ctx context.Context, profile string, ttl time.Duration) (UnlockFunc, error)
}
