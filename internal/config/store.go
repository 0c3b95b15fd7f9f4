package config

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/nkas/pkg/domain"
)

// Store holds the active profile of a session and swaps it atomically on Reload.
// Readers such as the control dispatcher see the new values on their next call.
type Store struct {
	path    string
	name    string
	logger  *slog.Logger
	config  atomic.Pointer[Config]
	profile atomic.Pointer[Profile]
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore loads profile name from the file at path.
func NewStore(path, name string, opts ...StoreOption) (*Store, error) {
	s := &Store{path: path, name: name, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file. On error the previous profile stays active.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	p, err := cfg.Profile(s.name)
	if err != nil {
		return err
	}
	if !p.ControlMethod.Known() {
		// Kept as is: every input call fails with a takeover until the file is fixed.
		s.logger.Warn("unknown control method in profile", "profile", p.Name, "control_method", string(p.ControlMethod))
	}
	s.config.Store(cfg)
	s.profile.Store(&p)
	s.logger.Info("profile loaded", "profile", p.Name, "serial", p.Serial, "control_method", string(p.ControlMethod))
	return nil
}

// Config returns the active configuration file content.
func (s *Store) Config() *Config {
	return s.config.Load()
}

// Profile returns the active profile.
func (s *Store) Profile() Profile {
	return *s.profile.Load()
}

// ControlMethod returns the active control method.
func (s *Store) ControlMethod() domain.ControlMethod {
	return s.profile.Load().ControlMethod
}
