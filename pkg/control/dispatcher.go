// Package control routes logical gestures to the configured input backend.
//
// The Dispatcher normalizes coordinates, applies the minimum swipe distance, resolves the
// backend from configuration on every call, runs the backend call under the retry policy
// and waits for the device to register the input before returning.
package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nkas/pkg/clock"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
	"github.com/aretw0/nkas/pkg/retry"
)

// MinSwipeDistance is the shortest swipe sent to the device, in pixels.
// The game reads anything shorter as a tap.
const MinSwipeDistance = 10.0

// Default settle delays after a successful gesture.
const (
	DefaultSettle     = 50 * time.Millisecond
	DefaultDragSettle = 500 * time.Millisecond
)

// MethodFunc returns the control method currently configured.
type MethodFunc func() domain.ControlMethod

// Dispatcher implements the caller-facing click/swipe/drag operations.
type Dispatcher struct {
	method     MethodFunc
	backends   map[domain.ControlMethod]ports.InputBackend
	policy     *retry.Policy
	clock      clock.Clock
	settle     time.Duration
	dragSettle time.Duration
	logger     *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithBackend registers the backend serving method.
func WithBackend(method domain.ControlMethod, b ports.InputBackend) Option {
	return func(d *Dispatcher) {
		d.backends[method] = b
	}
}

// WithSettle sets the delays after a tap/swipe and after a drag.
func WithSettle(settle, drag time.Duration) Option {
	return func(d *Dispatcher) {
		d.settle, d.dragSettle = settle, drag
	}
}

// WithClock sets the clock used for settle delays.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher. Backends are registered once here; method is read on every call.
func New(method MethodFunc, policy *retry.Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		method:     method,
		backends:   make(map[domain.ControlMethod]ports.InputBackend),
		policy:     policy,
		clock:      clock.System,
		settle:     DefaultSettle,
		dragSettle: DefaultDragSettle,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy == nil {
		d.policy = retry.New(retry.WithLogger(d.logger))
	}
	return d
}

// Click taps the location of target.
func (d *Dispatcher) Click(ctx context.Context, target Locator) error {
	p, err := Locate(target)
	if err != nil {
		return err
	}
	d.logger.Info("click", "point", p.String(), "target", describe(target))
	return d.tap(ctx, p)
}

// ClickCoordinate taps at coordinates given as (x, y) or as one paired value.
func (d *Dispatcher) ClickCoordinate(ctx context.Context, coords ...any) error {
	p, err := ParsePoint(coords...)
	if err != nil {
		return err
	}
	d.logger.Info("click", "point", p.String())
	return d.tap(ctx, p)
}

// Swipe moves from p1 to p2 with the default duration.
func (d *Dispatcher) Swipe(ctx context.Context, p1, p2 any) error {
	return d.SwipeDuration(ctx, p1, p2, domain.DefaultSwipeDuration)
}

// SwipeDuration moves from p1 to p2 over dur. Swipes shorter than MinSwipeDistance are
// dropped without touching the device and without error.
func (d *Dispatcher) SwipeDuration(ctx context.Context, p1, p2 any, dur time.Duration) error {
	from, to, err := parsePair(p1, p2)
	if err != nil {
		return err
	}
	d.logger.Info("swipe", "from", from.String(), "to", to.String())
	if from.Distance(to) < MinSwipeDistance {
		d.logger.Info("swipe distance below minimum, dropped", "distance", from.Distance(to))
		return nil
	}

	b, err := d.backend()
	if err != nil {
		return err
	}
	if err := retry.Run(ctx, d.policy, "swipe", func(ctx context.Context) error {
		return b.Swipe(ctx, from, to, dur)
	}); err != nil {
		return err
	}
	return d.clock.Sleep(ctx, d.settle)
}

// Drag holds at p1, moves to p2 over dur and holds again. Drags are not distance-checked.
func (d *Dispatcher) Drag(ctx context.Context, p1, p2 any, dur time.Duration) error {
	from, to, err := parsePair(p1, p2)
	if err != nil {
		return err
	}
	d.logger.Info("drag", "from", from.String(), "to", to.String())

	b, err := d.backend()
	if err != nil {
		return err
	}
	if err := retry.Run(ctx, d.policy, "drag", func(ctx context.Context) error {
		return b.Drag(ctx, from, to, dur)
	}); err != nil {
		return err
	}
	return d.clock.Sleep(ctx, d.dragSettle)
}

func (d *Dispatcher) tap(ctx context.Context, p domain.Point) error {
	b, err := d.backend()
	if err != nil {
		return err
	}
	if err := retry.Run(ctx, d.policy, "tap", func(ctx context.Context) error {
		return b.Tap(ctx, p)
	}); err != nil {
		return err
	}
	return d.clock.Sleep(ctx, d.settle)
}

// backend resolves the configured method. An unknown method is Fatal.
func (d *Dispatcher) backend() (ports.InputBackend, error) {
	m := d.method()
	if b, ok := d.backends[m]; ok {
		return b, nil
	}
	d.logger.Error("no input backend for control method", "method", string(m))
	return nil, &domain.TakeoverError{
		Op:   "dispatch",
		Last: domain.Fatal,
		Err:  fmt.Errorf("%w: %q", domain.ErrUnknownControlMethod, m),
	}
}

func parsePair(p1, p2 any) (domain.Point, domain.Point, error) {
	from, err := ParsePoint(p1)
	if err != nil {
		return domain.Point{}, domain.Point{}, err
	}
	to, err := ParsePoint(p2)
	if err != nil {
		return domain.Point{}, domain.Point{}, err
	}
	return from, to, nil
}

func describe(target Locator) string {
	if s, ok := target.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", target)
}
