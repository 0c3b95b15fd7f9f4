// Package app starts, stops and queries the game process through the backend family selected
// by the current control method.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/nkas/pkg/clock"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
	"github.com/aretw0/nkas/pkg/retry"
)

const (
	// DefaultActivity is the launch activity of the game.
	DefaultActivity = "com.shiftup.nk.MainActivity"
	// DefaultSettle is the wait before and after the overlay dismissal tap.
	DefaultSettle = time.Second
	// DefaultStopSettle is the wait after a force-stop.
	DefaultStopSettle = 500 * time.Millisecond
)

// DefaultDismissPoint is tapped once after launch to close the first-run overlay.
var DefaultDismissPoint = domain.Pt(250, 615)

// Clicker is the part of the control dispatcher used by the launch sequence.
type Clicker interface {
	ClickCoordinate(ctx context.Context, coords ...any) error
}

// Lifecycle manages one package on the device.
type Lifecycle struct {
	pkg        string
	activity   string
	method     func() domain.ControlMethod
	backends   map[domain.ControlMethod]ports.AppBackend
	policy     *retry.Policy
	clicker    Clicker
	clock      clock.Clock
	settle     time.Duration
	stopSettle time.Duration
	dismiss    domain.Point
	logger     *slog.Logger
}

// Option configures the Lifecycle.
type Option func(*Lifecycle)

// WithBackend registers the app backend serving method.
func WithBackend(method domain.ControlMethod, b ports.AppBackend) Option {
	return func(l *Lifecycle) {
		l.backends[method] = b
	}
}

// WithSettle sets the launch settle delay.
func WithSettle(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.settle = d
	}
}

// WithDismissPoint sets the coordinate tapped after launch.
func WithDismissPoint(p domain.Point) Option {
	return func(l *Lifecycle) {
		l.dismiss = p
	}
}

// WithClock sets the clock used for settle delays.
func WithClock(c clock.Clock) Option {
	return func(l *Lifecycle) {
		l.clock = c
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// New creates a Lifecycle for pkg. An empty activity selects DefaultActivity.
func New(pkg, activity string, method func() domain.ControlMethod, policy *retry.Policy, clicker Clicker, opts ...Option) *Lifecycle {
	if activity == "" {
		activity = DefaultActivity
	}
	l := &Lifecycle{
		pkg:        pkg,
		activity:   activity,
		method:     method,
		backends:   make(map[domain.ControlMethod]ports.AppBackend),
		policy:     policy,
		clicker:    clicker,
		clock:      clock.System,
		settle:     DefaultSettle,
		stopSettle: DefaultStopSettle,
		dismiss:    DefaultDismissPoint,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.policy == nil {
		l.policy = retry.New(retry.WithLogger(l.logger))
	}
	return l
}

// Package returns the managed package identifier.
func (l *Lifecycle) Package() string {
	return l.pkg
}

// Current returns the foreground package, or "" when it cannot be determined.
func (l *Lifecycle) Current(ctx context.Context) (string, error) {
	b, err := l.backend()
	if err != nil {
		return "", err
	}
	current, err := retry.Do(ctx, l.policy, "app_current", b.CurrentApp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(current), nil
}

// IsRunning reports whether the managed package is in the foreground.
func (l *Lifecycle) IsRunning(ctx context.Context) (bool, error) {
	current, err := l.Current(ctx)
	if err != nil {
		return false, err
	}
	l.logger.Info("app is running check", "package", current)
	return current == l.pkg, nil
}

// Start launches the app and runs the settle sequence. A foreground mismatch afterwards is
// logged and not returned: the verification is best effort.
func (l *Lifecycle) Start(ctx context.Context) error {
	b, err := l.backend()
	if err != nil {
		return err
	}
	l.logger.Info("app start", "package", l.pkg, "activity", l.activity)
	if err := retry.Run(ctx, l.policy, "app_start", func(ctx context.Context) error {
		return b.StartApp(ctx, l.pkg, l.activity)
	}); err != nil {
		return err
	}

	if err := l.clock.Sleep(ctx, l.settle); err != nil {
		return err
	}
	if err := l.clicker.ClickCoordinate(ctx, l.dismiss); err != nil {
		return err
	}
	if err := l.clock.Sleep(ctx, l.settle); err != nil {
		return err
	}

	current, err := retry.Do(ctx, l.policy, "app_current", b.CurrentApp)
	if err != nil {
		return err
	}
	if current = strings.TrimSpace(current); current != l.pkg {
		l.logger.Warn("app not in foreground after start", "package", l.pkg, "current", current)
	}
	return nil
}

// Stop force-stops the app.
func (l *Lifecycle) Stop(ctx context.Context) error {
	b, err := l.backend()
	if err != nil {
		return err
	}
	l.logger.Info("app stop", "package", l.pkg)
	if err := retry.Run(ctx, l.policy, "app_stop", func(ctx context.Context) error {
		return b.StopApp(ctx, l.pkg)
	}); err != nil {
		return err
	}
	return l.clock.Sleep(ctx, l.stopSettle)
}

func (l *Lifecycle) backend() (ports.AppBackend, error) {
	m := l.method()
	if b, ok := l.backends[m]; ok {
		return b, nil
	}
	return nil, &domain.TakeoverError{
		Op:   "app",
		Last: domain.Fatal,
		Err:  fmt.Errorf("%w: %q", domain.ErrUnknownControlMethod, m),
	}
}
