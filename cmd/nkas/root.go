package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/spf13/cobra"
)

// Exit codes. The supervisor restarts the session on exitTakeover only after operator review.
const (
	exitOK       = 0
	exitError    = 1
	exitTakeover = 3
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "nkas",
	Short:         "nkas drives a game instance over adb",
	Long:          `nkas controls an Android device through adb: input, screenshots and app lifecycle, with retries and reconnection on flaky links.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return exitCode(rootCmd.Execute())
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if errors.Is(err, domain.ErrHumanTakeover) {
		fmt.Fprintln(os.Stderr, "Human takeover required: the device needs operator attention.")
		return exitTakeover
	}
	return exitError
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "nkas.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "Profile to run (default \"nkas\")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from NKAS_LOG_LEVEL or the config file)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().Duration("lock-wait", 5*time.Second, "How long to wait for a profile used by another session")
}
