package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
)

// DefaultTimeout bounds a single adb invocation.
const DefaultTimeout = 10 * time.Second

// Transport implements ports.Transport by invoking the adb executable.
// A Transport belongs to one session and is reconnected in place.
type Transport struct {
	serial     string
	executable string
	timeout    time.Duration
	logger     *slog.Logger
	reconnects atomic.Int64
}

// Option configures the Transport.
type Option func(*Transport)

// WithExecutable sets the adb binary (default "adb" from PATH).
func WithExecutable(path string) Option {
	return func(t *Transport) {
		if path != "" {
			t.executable = path
		}
	}
}

// WithTimeout sets the per-command timeout. A command that exceeds it fails as Transient.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a Transport for the device identified by serial.
func New(serial string, opts ...Option) *Transport {
	t := &Transport{
		serial:     serial,
		executable: "adb",
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Serial returns the device serial.
func (t *Transport) Serial() string {
	return t.serial
}

// Reconnects returns how many times the transport was re-acquired.
func (t *Transport) Reconnects() int64 {
	return t.reconnects.Load()
}

// Shell implements ports.Transport.
func (t *Transport) Shell(ctx context.Context, argv ...string) ([]byte, error) {
	return t.run(ctx, "shell", append([]string{"-s", t.serial, "shell"}, argv...)...)
}

// ExecOut implements ports.Transport.
func (t *Transport) ExecOut(ctx context.Context, argv ...string) ([]byte, error) {
	return t.run(ctx, "exec-out", append([]string{"-s", t.serial, "exec-out"}, argv...)...)
}

// Execute implements ports.Transport.
func (t *Transport) Execute(ctx context.Context, cmd domain.Command) ([]byte, error) {
	argv := cmd.Args()
	if len(argv) == 0 {
		return nil, domain.NewFailure(domain.Fatal, string(cmd.Kind()), fmt.Errorf("command renders no arguments"))
	}
	return t.Shell(ctx, argv...)
}

// Forward implements ports.Forwarder.
func (t *Transport) Forward(ctx context.Context, local, remote string) error {
	_, err := t.run(ctx, "forward", "-s", t.serial, "forward", local, remote)
	return err
}

// Reconnect implements ports.Transport.
// Network serials (host:port) are disconnected and connected again; USB devices use "adb reconnect".
func (t *Transport) Reconnect(ctx context.Context) error {
	t.reconnects.Add(1)
	t.logger.Warn("reconnecting device", "serial", t.serial, "count", t.reconnects.Load())

	if !strings.Contains(t.serial, ":") {
		_, err := t.run(ctx, "reconnect", "-s", t.serial, "reconnect")
		return err
	}

	// Disconnect errors are expected when the device is already gone.
	if _, err := t.run(ctx, "disconnect", "disconnect", t.serial); err != nil {
		t.logger.Debug("disconnect failed", "serial", t.serial, "error", err)
	}
	out, err := t.run(ctx, "connect", "connect", t.serial)
	if err != nil {
		return err
	}
	text := string(out)
	if strings.Contains(text, "connected to") {
		return nil
	}
	// adb connect exits 0 on failure and reports it on stdout.
	return domain.NewFailure(classifyOutput(text), "connect", fmt.Errorf("adb connect %s: %s", t.serial, strings.TrimSpace(text)))
}

// run executes adb with args under the command timeout and classifies failures.
func (t *Transport) run(ctx context.Context, op string, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, t.executable, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	t.logger.Debug("adb", "op", op, "args", args, "duration", time.Since(start), "bytes", stdout.Len())

	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, domain.NewFailure(domain.Transient, op, fmt.Errorf("adb timed out after %s: %w", t.timeout, context.DeadlineExceeded))
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The binary itself could not be started.
		return nil, domain.NewFailure(domain.Fatal, op, fmt.Errorf("run %s: %w", t.executable, err))
	}

	text := strings.TrimSpace(stderr.String())
	if text == "" {
		text = strings.TrimSpace(stdout.String())
	}
	return nil, domain.NewFailure(classifyOutput(text), op,
		fmt.Errorf("adb exited with code %d: %s", exitErr.ExitCode(), text))
}
