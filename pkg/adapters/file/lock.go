// Package file implements the profile lock with lock files, for sessions sharing one host.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/nkas/pkg/ports"
	"github.com/google/uuid"
)

// ErrLockLost is returned by the UnlockFunc when the lock file was removed or taken over.
var ErrLockLost = errors.New("profile lock lost")

const pollInterval = 100 * time.Millisecond

// Owner is the content of a lock file.
type Owner struct {
	Token    string    `json:"token"`
	PID      int       `json:"pid"`
	Host     string    `json:"host"`
	Acquired time.Time `json:"acquired"`
}

// Locker implements ports.ProfileLocker with O_EXCL lock files. A lock file whose
// modification time is older than the ttl is stale and may be taken over; holders touch
// their file every ttl/2.
type Locker struct {
	BasePath string
}

var _ ports.ProfileLocker = (*Locker)(nil)

// NewLocker creates a Locker. If basePath is empty, it defaults to ".nkas/locks".
func NewLocker(basePath string) *Locker {
	if basePath == "" {
		basePath = filepath.Join(".nkas", "locks")
	}
	return &Locker{BasePath: basePath}
}

// Path returns the lock file of profile.
func (l *Locker) Path(profile string) string {
	return filepath.Join(l.BasePath, profile+".lock")
}

// Lock creates the lock file, polling until it succeeds or ctx is done.
func (l *Locker) Lock(ctx context.Context, profile string, ttl time.Duration) (ports.UnlockFunc, error) {
	if profile == "" || strings.ContainsAny(profile, `/\`) || profile == "." || profile == ".." {
		return nil, fmt.Errorf("invalid profile name %q", profile)
	}
	if err := os.MkdirAll(l.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure lock directory: %w", err)
	}

	path := l.Path(profile)
	host, _ := os.Hostname()
	owner := Owner{Token: uuid.NewString(), PID: os.Getpid(), Host: host}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		owner.Acquired = time.Now().UTC()
		err := create(path, owner)
		if err == nil {
			return l.hold(path, owner.Token, ttl), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		if stale(path, ttl) {
			// Another waiter may win the race to recreate it; O_EXCL settles that.
			_ = os.Remove(path)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func create(path string, owner Owner) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(owner); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close lock file: %w", err)
	}
	return nil
}

func stale(path string, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		// Gone already: retry the create right away.
		return errors.Is(err, fs.ErrNotExist)
	}
	return time.Since(info.ModTime()) > ttl
}

// ReadOwner returns the current holder of a lock file.
func ReadOwner(path string) (Owner, error) {
	var owner Owner
	data, err := os.ReadFile(path)
	if err != nil {
		return owner, err
	}
	if err := json.Unmarshal(data, &owner); err != nil {
		return owner, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return owner, nil
}

func (l *Locker) hold(path, token string, ttl time.Duration) ports.UnlockFunc {
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
			case now := <-t.C:
				_ = os.Chtimes(path, now, now)
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
		owner, err := ReadOwner(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return ErrLockLost
			}
			return err
		}
		if owner.Token != token {
			return ErrLockLost
		}
		return os.Remove(path)
	}
}
