package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/cenkalti/backoff/v5"
)

// DefaultTries is the attempt bound of a wrapped call (RETRY_TRIES).
const DefaultTries = 5

// Policy holds the retry configuration shared by all calls of one session.
// It keeps no per-call state.
type Policy struct {
	tries      int
	reconnect  func(ctx context.Context) error
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	hooks      Hooks
}

// Option configures a Policy.
type Option func(*Policy)

// WithTries sets the attempt bound. Values below 1 are ignored.
func WithTries(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.tries = n
		}
	}
}

// WithReconnect sets the recovery action run before the attempt following a Transient failure.
func WithReconnect(fn func(ctx context.Context) error) Option {
	return func(p *Policy) {
		p.reconnect = fn
	}
}

// WithBackOff sets the factory of the delay schedule. A fresh BackOff is built per call.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(p *Policy) {
		p.newBackOff = fn
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(h Hooks) Option {
	return func(p *Policy) {
		p.hooks = h
	}
}

// New creates a Policy with the default bound and schedule.
func New(opts ...Option) *Policy {
	p := &Policy{
		tries:      DefaultTries,
		newBackOff: NewStepped,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tries returns the attempt bound.
func (p *Policy) Tries() int {
	return p.tries
}

// RetryContext is the state of one wrapped call.
type RetryContext struct {
	Attempt int
	Last    domain.FailureClass
	LastErr error

	// pending runs once, right before the next attempt.
	pending func(ctx context.Context) error
}

// Do runs fn under the policy. It returns fn's first successful result, ctx.Err() if the
// context ends, or a *domain.TakeoverError.
func Do[T any](ctx context.Context, p *Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	rc := &RetryContext{}

	operation := func() (T, error) {
		var zero T
		rc.Attempt++
		if rc.pending != nil {
			recovery := rc.pending
			rc.pending = nil
			p.hooks.reconnect(op)
			if err := recovery(ctx); err != nil {
				return zero, p.failed(ctx, op, rc, fmt.Errorf("reconnect: %w", err))
			}
		}
		v, err := fn(ctx)
		if err != nil {
			return zero, p.failed(ctx, op, rc, err)
		}
		return v, nil
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.tries)),
	)
	if err == nil {
		p.hooks.success(op, rc.Attempt)
		return v, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return v, ctxErr
	}

	p.hooks.takeover(op, rc.Last)
	p.logger.Error("retry failed, human takeover required",
		"op", op, "attempts", rc.Attempt, "class", rc.Last.String(), "error", rc.LastErr)
	return v, &domain.TakeoverError{Op: op, Attempts: rc.Attempt, Last: rc.Last, Err: rc.LastErr}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p *Policy, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// failed records a failed attempt and decides what happens before the next one.
func (p *Policy) failed(ctx context.Context, op string, rc *RetryContext, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return backoff.Permanent(ctxErr)
	}

	class := domain.Classify(err)
	rc.Last = class
	rc.LastErr = err
	p.hooks.attemptFailed(op, class, rc.Attempt)

	switch class {
	case domain.Fatal:
		p.logger.Error("unrecoverable failure", "op", op, "attempt", rc.Attempt, "error", err)
		return backoff.Permanent(err)
	case domain.Transient:
		p.logger.Warn("transient failure, reconnecting before retry", "op", op, "attempt", rc.Attempt, "error", err)
		rc.pending = p.reconnect
	default:
		p.logger.Warn("attempt failed, retrying", "op", op, "attempt", rc.Attempt, "class", class.String(), "error", err)
	}
	return err
}
