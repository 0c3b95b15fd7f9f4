// Package redis implements the profile lock on Redis, for sessions spread over several hosts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/nkas/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by the UnlockFunc when the lock expired or was taken over.
var ErrLockLost = errors.New("profile lock lost")

// pollInterval is the wait between two acquisition attempts.
const pollInterval = 100 * time.Millisecond

// Only the holder of the token may release or extend the lock.
var (
	unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
	extendScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker implements ports.ProfileLocker using Redis.
type Locker struct {
	client backend.UniversalClient
	prefix string
}

var _ ports.ProfileLocker = (*Locker)(nil)

// NewLocker creates a Redis locker. Keys are prefix + "lock:" + profile.
func NewLocker(client backend.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Key returns the Redis key guarding profile.
func (l *Locker) Key(profile string) string {
	return l.prefix + "lock:" + profile
}

// Lock acquires the lock with SET NX PX, polling until it succeeds or ctx is done.
// While held, the lock is extended every ttl/2 until the UnlockFunc is called.
func (l *Locker) Lock(ctx context.Context, profile string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := l.Key(profile)
	token := uuid.NewString()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return l.hold(key, token, ttl), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) hold(key, token string, ttl time.Duration) ports.UnlockFunc {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if ttl <= 0 {
			<-stop
			return
		}
		t := time.NewTicker(ttl / 2)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				_ = extendScript.Run(context.Background(), l.client, []string{key}, token, ttl.Milliseconds()).Err()
			}
		}
	}()

	return func(ctx context.Context) error {
		select {
		case <-stop:
			return nil
		default:
		}
		close(stop)
		<-done
		n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis error releasing lock: %w", err)
		}
		if n == 0 {
			return ErrLockLost
		}
		return nil
	}
}
