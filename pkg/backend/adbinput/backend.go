// Package adbinput injects input through "input" shell commands and manages the app with "am".
package adbinput

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/ports"
)

// focusPatterns are tried in order against "dumpsys window windows"; the first match wins.
var focusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`mCurrentFocus=Window\{.*\s+(\S+)/\S+\}`),
	regexp.MustCompile(`mFocusedApp=.*\s+(\S+)/\S+`),
	regexp.MustCompile(`Window\{.*\s+(\S+)/\S+\}`),
}

// Backend implements ports.InputBackend and ports.AppBackend over a shell transport.
type Backend struct {
	transport ports.Transport
	logger    *slog.Logger
}

// Option configures the Backend.
type Option func(*Backend)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a Backend issuing commands through transport.
func New(transport ports.Transport, opts ...Option) *Backend {
	b := &Backend{
		transport: transport,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tap implements ports.InputBackend.
func (b *Backend) Tap(ctx context.Context, p domain.Point) error {
	_, err := b.transport.Execute(ctx, domain.Tap(p))
	return err
}

// Swipe implements ports.InputBackend.
func (b *Backend) Swipe(ctx context.Context, p1, p2 domain.Point, d time.Duration) error {
	_, err := b.transport.Execute(ctx, domain.Swipe(p1, p2, d))
	return err
}

// Drag implements ports.InputBackend. It is a swipe held long enough to pick items up.
func (b *Backend) Drag(ctx context.Context, p1, p2 domain.Point, d time.Duration) error {
	_, err := b.transport.Execute(ctx, domain.Drag(p1, p2, d))
	return err
}

// CurrentApp implements ports.AppBackend.
func (b *Backend) CurrentApp(ctx context.Context) (string, error) {
	out, err := b.transport.Execute(ctx, domain.Query("dumpsys", "window", "windows"))
	if err != nil {
		return "", err
	}
	return ParseFocusedPackage(string(out)), nil
}

// StartApp implements ports.AppBackend.
func (b *Backend) StartApp(ctx context.Context, pkg, activity string) error {
	out, err := b.transport.Execute(ctx, domain.AppStart(pkg, activity))
	if err != nil {
		return err
	}
	// am start reports a missing package or activity on stdout with exit code 0.
	text := string(out)
	if strings.Contains(text, "Error:") || strings.Contains(text, "does not exist") {
		return domain.NewFailure(domain.Fatal, string(domain.KindAppStart),
			fmt.Errorf("am start %s/%s: %s", pkg, activity, strings.TrimSpace(text)))
	}
	return nil
}

// StopApp implements ports.AppBackend.
func (b *Backend) StopApp(ctx context.Context, pkg string) error {
	_, err := b.transport.Execute(ctx, domain.AppStop(pkg))
	return err
}

// ParseFocusedPackage extracts the focused package from a window dump, or "" if none matches.
func ParseFocusedPackage(dump string) string {
	for _, re := range focusPatterns {
		if m := re.FindStringSubmatch(dump); m != nil {
			return m[1]
		}
	}
	return ""
}
