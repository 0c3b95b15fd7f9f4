// Package minitouch injects touches directly through the minitouch socket protocol.
//
// The on-device minitouch server listens on the abstract socket "minitouch"; the backend
// exposes it locally with an adb forward and keeps one connection open between gestures.
// A broken connection is reported as a Transient failure and re-dialed on the next call.
package minitouch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/nkas/pkg/clock"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
)

const (
	// DefaultPort is the local end of the adb forward.
	DefaultPort = 1111
	// DefaultPressure is used unless the device reports a lower maximum.
	DefaultPressure = 100

	stepInterval = 10 * time.Millisecond
	dragHold     = 100 * time.Millisecond
	ioTimeout    = 5 * time.Second
)

// resumedPatterns are tried in order against "dumpsys activity activities".
var resumedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`topResumedActivity=ActivityRecord\{\S+ \S+ (\S+)/`),
	regexp.MustCompile(`mResumedActivity: ActivityRecord\{\S+ \S+ (\S+)/`),
	regexp.MustCompile(`ResumedActivity: ActivityRecord\{\S+ \S+ (\S+)/`),
	regexp.MustCompile(`mFocusedActivity: ActivityRecord\{\S+ \S+ (\S+)/`),
}

// Backend implements ports.InputBackend, ports.AppBackend and ports.Resetter.
type Backend struct {
	transport ports.Transport
	port      int
	binary    string
	width     int
	height    int
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	conn    net.Conn
	banner  Banner
	started bool
}

// Option configures the Backend.
type Option func(*Backend)

// WithPort sets the local forward port.
func WithPort(port int) Option {
	return func(b *Backend) {
		if port > 0 {
			b.port = port
		}
	}
}

// WithBinary sets the on-device minitouch path started before the first connection.
// When empty the server is assumed to be running already.
func WithBinary(path string) Option {
	return func(b *Backend) {
		b.binary = path
	}
}

// WithScreen sets the screen size used to scale coordinates onto the touch grid.
func WithScreen(width, height int) Option {
	return func(b *Backend) {
		if width > 0 && height > 0 {
			b.width, b.height = width, height
		}
	}
}

// WithClock sets the clock used to wait for gestures to finish on the device.
func WithClock(c clock.Clock) Option {
	return func(b *Backend) {
		b.clock = c
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a Backend. Forwarding uses transport when it implements ports.Forwarder.
func New(transport ports.Transport, opts ...Option) *Backend {
	b := &Backend{
		transport: transport,
		port:      DefaultPort,
		width:     720,
		height:    1280,
		clock:     clock.System,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tap implements ports.InputBackend.
func (b *Backend) Tap(ctx context.Context, p domain.Point) error {
	return b.send(ctx, "tap", func(s *script) {
		s.down(b.convert(p)).commit().up().commit()
	})
}

// Swipe implements ports.InputBackend.
func (b *Backend) Swipe(ctx context.Context, p1, p2 domain.Point, d time.Duration) error {
	if d <= 0 {
		d = domain.DefaultSwipeDuration
	}
	return b.send(ctx, "swipe", func(s *script) {
		s.down(b.convert(p1)).commit()
		for _, p := range interpolate(p1, p2, int(d/stepInterval)) {
			s.move(b.convert(p)).commit().wait(stepInterval)
		}
		s.up().commit()
	})
}

// Drag implements ports.InputBackend. The touch is held at both ends.
func (b *Backend) Drag(ctx context.Context, p1, p2 domain.Point, d time.Duration) error {
	if d <= 0 {
		d = domain.DefaultDragDuration
	}
	return b.send(ctx, "drag", func(s *script) {
		s.down(b.convert(p1)).commit().wait(dragHold)
		for _, p := range interpolate(p1, p2, int(d/stepInterval)) {
			s.move(b.convert(p)).commit().wait(stepInterval)
		}
		s.wait(dragHold).up().commit()
	})
}

// Reset implements ports.Resetter. The next gesture dials a fresh connection.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

// Banner returns the header of the current connection.
func (b *Backend) Banner() Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.banner
}

// convert scales a screen coordinate onto the minitouch grid.
func (b *Backend) convert(p domain.Point) domain.Point {
	if b.banner.MaxX <= 0 || b.banner.MaxY <= 0 {
		return p
	}
	return domain.Point{
		X: p.X * b.banner.MaxX / b.width,
		Y: p.Y * b.banner.MaxY / b.height,
	}
}

func (b *Backend) send(ctx context.Context, op string, build func(*script)) error {
	b.mu.Lock()
	if err := b.ensureLocked(ctx); err != nil {
		b.mu.Unlock()
		return err
	}

	s := &script{pressure: DefaultPressure}
	if b.banner.MaxPressure > 0 && b.banner.MaxPressure < s.pressure {
		s.pressure = b.banner.MaxPressure
	}
	build(s)

	_ = b.conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	_, err := io.WriteString(b.conn, s.String())
	if err != nil {
		_ = b.closeLocked()
		b.mu.Unlock()
		return domain.NewFailure(domain.Transient, op, fmt.Errorf("minitouch write: %w", err))
	}
	b.mu.Unlock()

	// minitouch does not acknowledge; wait for the scripted delays to play out.
	return b.clock.Sleep(ctx, s.delay)
}

func (b *Backend) ensureLocked(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}

	if fw, ok := b.transport.(ports.Forwarder); ok {
		if err := fw.Forward(ctx, "tcp:"+strconv.Itoa(b.port), "localabstract:minitouch"); err != nil {
			return err
		}
	}
	if b.binary != "" && !b.started {
		if _, err := b.transport.Shell(ctx, "nohup "+b.binary+" >/dev/null 2>&1 &"); err != nil {
			return err
		}
		b.started = true
	}

	dialer := net.Dialer{Timeout: ioTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(b.port)))
	if err != nil {
		return domain.NewFailure(domain.Transient, "minitouch", fmt.Errorf("dial: %w", err))
	}

	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	banner, err := readBanner(bufio.NewReader(conn))
	if err != nil {
		conn.Close()
		return domain.NewFailure(domain.Transient, "minitouch", fmt.Errorf("read banner: %w", err))
	}
	_ = conn.SetReadDeadline(time.Time{})

	b.conn = conn
	b.banner = banner
	b.logger.Info("minitouch connected",
		"port", b.port, "max_x", banner.MaxX, "max_y", banner.MaxY, "pid", banner.PID)
	return nil
}

func (b *Backend) closeLocked() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	b.banner = Banner{}
	return err
}

// CurrentApp implements ports.AppBackend.
func (b *Backend) CurrentApp(ctx context.Context) (string, error) {
	out, err := b.transport.Execute(ctx, domain.Query("dumpsys", "activity", "activities"))
	if err != nil {
		return "", err
	}
	return ParseResumedPackage(string(out)), nil
}

// StartApp implements ports.AppBackend. The launcher intent is used; activity is ignored.
func (b *Backend) StartApp(ctx context.Context, pkg, activity string) error {
	out, err := b.transport.Execute(ctx, domain.AppStart(pkg, ""))
	if err != nil {
		return err
	}
	if text := string(out); strings.Contains(text, "No activities found") || strings.Contains(text, "monkey aborted") {
		return domain.NewFailure(domain.Fatal, string(domain.KindAppStart),
			fmt.Errorf("monkey %s: %s", pkg, strings.TrimSpace(text)))
	}
	return nil
}

// StopApp implements ports.AppBackend.
func (b *Backend) StopApp(ctx context.Context, pkg string) error {
	_, err := b.transport.Execute(ctx, domain.AppStop(pkg))
	return err
}

// ParseResumedPackage extracts the resumed package from an activity dump, or "" if none matches.
func ParseResumedPackage(dump string) string {
	for _, re := range resumedPatterns {
		if m := re.FindStringSubmatch(dump); m != nil {
			return m[1]
		}
	}
	return ""
}
