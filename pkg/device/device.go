// Package device is the caller-facing API of one automation session: screenshots, input and
// app lifecycle behind a single value.
package device

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nkas/pkg/app"
	"github.com/aretw0/nkas/pkg/control"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
	"github.com/aretw0/nkas/pkg/retry"
)

// Default resolution of the game client, portrait.
const (
	DefaultWidth  = 720
	DefaultHeight = 1280
)

// Device composes the transport, dispatcher and lifecycle of one session.
type Device struct {
	transport ports.Transport
	control   *control.Dispatcher
	app       *app.Lifecycle
	policy    *retry.Policy
	method    ScreenshotMethod
	width     int
	height    int
	logger    *slog.Logger

	image *domain.Frame
}

// Option configures the Device.
type Option func(*Device)

// WithScreenshotMethod selects the capture method.
func WithScreenshotMethod(m ScreenshotMethod) Option {
	return func(d *Device) {
		d.method = m
	}
}

// WithResolution sets the expected screen size. A zero size disables the check.
func WithResolution(width, height int) Option {
	return func(d *Device) {
		d.width, d.height = width, height
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

// New creates a Device.
func New(transport ports.Transport, dispatcher *control.Dispatcher, lifecycle *app.Lifecycle, policy *retry.Policy, opts ...Option) *Device {
	d := &Device{
		transport: transport,
		control:   dispatcher,
		app:       lifecycle,
		policy:    policy,
		method:    ScreenshotPNG,
		width:     DefaultWidth,
		height:    DefaultHeight,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy == nil {
		d.policy = retry.New(retry.WithLogger(d.logger))
	}
	return d
}

// Screenshot captures and decodes a frame. The frame is also kept as Image.
func (d *Device) Screenshot(ctx context.Context) (*domain.Frame, error) {
	start := time.Now()
	frame, err := retry.Do(ctx, d.policy, "screenshot", d.capture)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("screenshot", "method", string(d.method), "took", time.Since(start))
	d.image = frame
	return frame, nil
}

func (d *Device) capture(ctx context.Context) (*domain.Frame, error) {
	var (
		frame *domain.Frame
		err   error
	)
	switch d.method {
	case ScreenshotPNG:
		var out []byte
		if out, err = d.transport.ExecOut(ctx, "screencap", "-p"); err != nil {
			return nil, err
		}
		frame, err = DecodePNG(out)
	case ScreenshotRaw:
		var out []byte
		if out, err = d.transport.ExecOut(ctx, "screencap"); err != nil {
			return nil, err
		}
		frame, err = DecodeRaw(out)
	default:
		return nil, domain.NewFailure(domain.Fatal, "screenshot", fmt.Errorf("unknown screenshot method %q", d.method))
	}
	if err != nil {
		return nil, err
	}
	if err := d.checkResolution(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// checkResolution rejects frames of another size: every coordinate in the task layer assumes
// the configured resolution, so this needs an operator to fix the emulator settings.
func (d *Device) checkResolution(f *domain.Frame) error {
	if d.width == 0 || d.height == 0 || (f.Width == d.width && f.Height == d.height) {
		return nil
	}
	d.logger.Error("unexpected screen resolution", "width", f.Width, "height", f.Height,
		"expected_width", d.width, "expected_height", d.height)
	return domain.NewFailure(domain.Fatal, "screenshot",
		fmt.Errorf("%w: %dx%d, expected %dx%d", domain.ErrResolution, f.Width, f.Height, d.width, d.height))
}

// Image returns the last captured frame, or nil before the first screenshot.
func (d *Device) Image() *domain.Frame {
	return d.image
}

// Observer adapts Screenshot to a poll.Loop observer.
func (d *Device) Observer() func(ctx context.Context) (*domain.Frame, error) {
	return d.Screenshot
}

// Click taps target.
func (d *Device) Click(ctx context.Context, target control.Locator) error {
	return d.control.Click(ctx, target)
}

// ClickCoordinate taps at (x, y) or a paired value.
func (d *Device) ClickCoordinate(ctx context.Context, coords ...any) error {
	return d.control.ClickCoordinate(ctx, coords...)
}

// Swipe moves from p1 to p2 with the default duration.
func (d *Device) Swipe(ctx context.Context, p1, p2 any) error {
	return d.control.Swipe(ctx, p1, p2)
}

// SwipeDuration moves from p1 to p2 over dur.
func (d *Device) SwipeDuration(ctx context.Context, p1, p2 any, dur time.Duration) error {
	return d.control.SwipeDuration(ctx, p1, p2, dur)
}

// Drag drags from p1 to p2 over dur.
func (d *Device) Drag(ctx context.Context, p1, p2 any, dur time.Duration) error {
	return d.control.Drag(ctx, p1, p2, dur)
}

// AppIsRunning reports whether the game is in the foreground.
func (d *Device) AppIsRunning(ctx context.Context) (bool, error) {
	return d.app.IsRunning(ctx)
}

// AppCurrent returns the foreground package.
func (d *Device) AppCurrent(ctx context.Context) (string, error) {
	return d.app.Current(ctx)
}

// AppStart launches the game.
func (d *Device) AppStart(ctx context.Context) error {
	return d.app.Start(ctx)
}

// AppStop force-stops the game.
func (d *Device) AppStop(ctx context.Context) error {
	return d.app.Stop(ctx)
}
