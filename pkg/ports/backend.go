package ports

import (
	"context"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
)

// InputBackend translates a logical gesture into device commands.
// Implementations issue the raw commands only; retries and settle delays belong to the caller.
type InputBackend interface {
	Tap(ctx context.Context, p domain.Point) error
	Swipe(ctx context.Context, p1, p2 domain.Point, d time.Duration) error
	Drag(ctx context.Context, p1, p2 domain.Point, d time.Duration) error
}

// AppBackend controls the game process for one backend family.
type AppBackend interface {
	// CurrentApp returns the focused package, or "" when it cannot be determined.
	CurrentApp(ctx context.Context) (string, error)
	StartApp(ctx context.Context, pkg, activity string) error
	StopApp(ctx context.Context, pkg string) error
}

// Resetter is implemented by backends holding their own connection,
// which must be dropped when the transport reconnects.
type Resetter interface {
	Reset() error
}
