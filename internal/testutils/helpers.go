// Package testutils holds fakes shared by the package tests: a scripted transport and a manual clock.
package testutils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
)

// Step is one scripted transport reply.
type Step struct {
	Out []byte
	Err error
}

// Call records a transport invocation. Kind is set for calls made through Execute.
type Call struct {
	Op   string
	Kind domain.CommandKind
	Argv []string
}

func (c Call) String() string {
	return c.Op + " " + strings.Join(c.Argv, " ")
}

// FakeTransport implements ports.Transport and ports.Forwarder.
// Replies come from Script (consumed in order), then Handler, then an empty success.
type FakeTransport struct {
	mu sync.Mutex

	Script       []Step
	Handler      func(op string, argv []string) ([]byte, error)
	ReconnectErr error

	Calls      []Call
	Reconnects int
}

func (f *FakeTransport) reply(op string, kind domain.CommandKind, argv []string) ([]byte, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{Op: op, Kind: kind, Argv: append([]string(nil), argv...)})
	if len(f.Script) > 0 {
		s := f.Script[0]
		f.Script = f.Script[1:]
		f.mu.Unlock()
		return s.Out, s.Err
	}
	h := f.Handler
	f.mu.Unlock()
	if h != nil {
		return h(op, argv)
	}
	return nil, nil
}

// Shell implements ports.Transport.
func (f *FakeTransport) Shell(ctx context.Context, argv ...string) ([]byte, error) {
	return f.reply("shell", "", argv)
}

// ExecOut implements ports.Transport.
func (f *FakeTransport) ExecOut(ctx context.Context, argv ...string) ([]byte, error) {
	return f.reply("exec-out", "", argv)
}

// Execute implements ports.Transport.
func (f *FakeTransport) Execute(ctx context.Context, cmd domain.Command) ([]byte, error) {
	return f.reply("shell", cmd.Kind(), cmd.Args())
}

// Forward implements ports.Forwarder.
func (f *FakeTransport) Forward(ctx context.Context, local, remote string) error {
	_, err := f.reply("forward", "", []string{local, remote})
	return err
}

// Reconnect implements ports.Transport.
func (f *FakeTransport) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reconnects++
	return f.ReconnectErr
}

// Commands returns every recorded call rendered as "op argv...".
func (f *FakeTransport) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}

// FakeClock is a manual clock. Sleep advances time instantly.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration
}

// NewFakeClock starts the clock at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)}
}

// Now implements clock.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep implements clock.Clock.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sleeps = append(c.Sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Slept returns the total time slept.
func (c *FakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.Sleeps {
		total += d
	}
	return total
}
