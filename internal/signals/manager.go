// Package signals turns OS signals into a shutdown context and a reload channel.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Manager cancels its context on SIGINT or SIGTERM and reports SIGHUP on Reload.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	reload chan os.Signal
}

// New creates a manager and immediately starts listening for signals.
func New(parent context.Context) *Manager {
	m := &Manager{reload: make(chan os.Signal, 1)}
	m.ctx, m.cancel = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	signal.Notify(m.reload, syscall.SIGHUP)
	return m
}

// Context is cancelled by the first SIGINT or SIGTERM.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Reload delivers SIGHUP. Signals arriving while one is pending are dropped.
func (m *Manager) Reload() <-chan os.Signal {
	return m.reload
}

// Stop permanently stops the listeners and cancels the context.
func (m *Manager) Stop() {
	signal.Stop(m.reload)
	m.cancel()
}
