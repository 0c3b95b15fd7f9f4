package ports

import (
	"context"

	"github.com/aretw0/nkas/pkg/domain"
)

// Transport owns the raw channel to the device.
// Errors returned by a Transport should carry a domain.FailureClass (see domain.Failure).
type Transport interface {
	// Shell runs argv through the device shell and returns its text output.
	Shell(ctx context.Context, argv ...string) ([]byte, error)
	// ExecOut runs argv and returns its binary-safe output.
	ExecOut(ctx context.Context, argv ...string) ([]byte, error)
	// Execute runs a Command; the whole command succeeds or a failure is returned.
	Execute(ctx context.Context, cmd domain.Command) ([]byte, error)
	// Reconnect re-acquires the channel in place.
	Reconnect(ctx context.Context) error
}

// Forwarder is implemented by transports that can expose a device socket locally.
type Forwarder interface {
	Forward(ctx context.Context, local, remote string) error
}
