package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/nkas/internal/config"
	"github.com/aretw0/nkas/internal/logging"
	"github.com/aretw0/nkas/internal/session"
	"github.com/aretw0/nkas/pkg/adapters/file"
	redisadapter "github.com/aretw0/nkas/pkg/adapters/redis"
	"github.com/aretw0/nkas/pkg/ports"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// loadStore builds the logger and loads the selected profile.
func loadStore(cmd *cobra.Command) (*config.Store, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	profile, _ := cmd.Flags().GetString("profile")
	levelFlag, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	newLogger := func(level string) (*slog.Logger, error) {
		lvl, err := logging.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		return logging.New(lvl, logging.Format(format)), nil
	}

	level := levelFlag
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, err
	}

	store, err := config.NewStore(path, profile, config.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	// The file's level applies when neither the flag nor the environment set one.
	if level == "" && store.Config().LogLevel != "" {
		if logger, err = newLogger(store.Config().LogLevel); err != nil {
			return nil, nil, err
		}
	}
	return store, logger, nil
}

// newLocker selects the Redis lock when an address is configured, the file lock otherwise.
func newLocker(cfg *config.Config) (ports.ProfileLocker, func() error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return redisadapter.NewLocker(client, "nkas:"), client.Close
	}
	return file.NewLocker(cfg.LockDir), func() error { return nil }
}

// openSession locks the profile and assembles its device.
func openSession(cmd *cobra.Command, opts ...session.Option) (*session.Session, *config.Store, *slog.Logger, func(), error) {
	store, logger, err := loadStore(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	wait, _ := cmd.Flags().GetDuration("lock-wait")

	locker, closeLocker := newLocker(store.Config())
	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()

	opts = append([]session.Option{
		session.WithLocker(locker, session.DefaultLockTTL),
		session.WithLogger(logger),
	}, opts...)
	s, err := session.Open(ctx, store, opts...)
	if err != nil {
		_ = closeLocker()
		return nil, nil, nil, nil, err
	}

	closeFn := func() {
		if err := s.Close(context.Background()); err != nil {
			logger.Warn("failed to release profile lock", "error", err)
		}
		if err := closeLocker(); err != nil {
			logger.Warn("failed to close lock client", "error", err)
		}
	}
	return s, store, logger, closeFn, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
