// Package session builds a fully configured automation session for one profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nkas/internal/config"
	"github.com/aretw0/nkas/internal/metrics"
	"github.com/aretw0/nkas/pkg/adapters/adb"
	"github.com/aretw0/nkas/pkg/app"
	"github.com/aretw0/nkas/pkg/backend/adbinput"
	"github.com/aretw0/nkas/pkg/backend/minitouch"
	"github.com/aretw0/nkas/pkg/clock"
	"github.com/aretw0/nkas/pkg/control"
	"github.com/aretw0/nkas/pkg/device"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
	"github.com/aretw0/nkas/pkg/retry"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLockTTL is the lifetime of a profile lock between two refreshes.
const DefaultLockTTL = 30 * time.Second

// Session owns the device of one profile for the life of the process.
type Session struct {
	ID      string
	Profile config.Profile
	Device  *device.Device
	Metrics *metrics.Metrics

	policy *retry.Policy
	unlock ports.UnlockFunc
	logger *slog.Logger
}

type options struct {
	locker     ports.ProfileLocker
	lockTTL    time.Duration
	transport  ports.Transport
	registerer prometheus.Registerer
	clock      clock.Clock
	backOff    func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithLocker makes Open acquire the profile lock before touching the device.
func WithLocker(locker ports.ProfileLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = locker
		o.lockTTL = ttl
	}
}

// WithTransport replaces the adb transport built from the profile.
func WithTransport(t ports.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithRegisterer registers the session metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithClock sets the clock used for settle delays.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithBackOff replaces the retry delay schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = fn
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open locks the store's profile and assembles its device. The control method is read from
// the store on every input call; the other profile values are fixed for the session.
func Open(ctx context.Context, store *config.Store, opts ...Option) (*Session, error) {
	o := options{
		lockTTL: DefaultLockTTL,
		clock:   clock.System,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := store.Profile()
	id := uuid.NewString()
	logger := o.logger.With("profile", p.Name, "session", id)

	var unlock ports.UnlockFunc
	if o.locker != nil {
		var err error
		if unlock, err = o.locker.Lock(ctx, p.Name, o.lockTTL); err != nil {
			return nil, fmt.Errorf("profile %q is in use: %w", p.Name, err)
		}
		logger.Debug("profile locked")
	}

	transport := o.transport
	if transport == nil {
		transport = adb.New(p.Serial,
			adb.WithExecutable(p.ADB),
			adb.WithTimeout(p.CommandTimeout),
			adb.WithLogger(logger),
		)
	}

	m := metrics.New(o.registerer, p.Name)
	touch := minitouch.New(transport,
		minitouch.WithPort(p.Minitouch.Port),
		minitouch.WithBinary(p.Minitouch.Binary),
		minitouch.WithScreen(p.Resolution.Width, p.Resolution.Height),
		minitouch.WithClock(o.clock),
		minitouch.WithLogger(logger),
	)
	shell := adbinput.New(transport, adbinput.WithLogger(logger))

	policyOpts := []retry.Option{
		retry.WithTries(p.Retry.Tries),
		retry.WithReconnect(reconnect(transport, touch)),
		retry.WithHooks(m.Hooks()),
		retry.WithLogger(logger),
	}
	if o.backOff != nil {
		policyOpts = append(policyOpts, retry.WithBackOff(o.backOff))
	}
	policy := retry.New(policyOpts...)

	dispatcher := control.New(store.ControlMethod, policy,
		control.WithBackend(domain.MethodMinitouch, touch),
		control.WithBackend(domain.MethodADB, shell),
		control.WithClock(o.clock),
		control.WithLogger(logger),
	)
	lifecycle := app.New(p.Package, p.Activity, store.ControlMethod, policy, dispatcher,
		app.WithBackend(domain.MethodMinitouch, touch),
		app.WithBackend(domain.MethodADB, shell),
		app.WithSettle(p.App.Settle),
		app.WithDismissPoint(p.App.Dismiss),
		app.WithClock(o.clock),
		app.WithLogger(logger),
	)
	dev := device.New(transport, dispatcher, lifecycle, policy,
		device.WithScreenshotMethod(device.ScreenshotMethod(p.ScreenshotMethod)),
		device.WithResolution(p.Resolution.Width, p.Resolution.Height),
		device.WithLogger(logger),
	)

	logger.Info("session opened", "serial", p.Serial, "control_method", string(p.ControlMethod))
	return &Session{
		ID:      id,
		Profile: p,
		Device:  dev,
		Metrics: m,
		policy:  policy,
		unlock:  unlock,
		logger:  logger,
	}, nil
}

// reconnect re-acquires the transport in place, then drops every backend connection that
// went through the old channel.
func reconnect(t ports.Transport, backends ...ports.Resetter) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := t.Reconnect(ctx)
		for _, b := range backends {
			err = errors.Join(err, b.Reset())
		}
		return err
	}
}

// Policy returns the session's retry policy.
func (s *Session) Policy() *retry.Policy {
	return s.policy
}

// Close releases the profile lock.
func (s *Session) Close(ctx context.Context) error {
	s.logger.Info("session closed")
	if s.unlock == nil {
		return nil
	}
	return s.unlock(ctx)
}
