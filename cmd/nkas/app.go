package main

import (
	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Start, stop or query the game",
}

var appStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the game and dismiss the first overlay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return s.Device.AppStart(cmd.Context())
	},
}

var appStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Force-stop the game",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return s.Device.AppStop(cmd.Context())
	},
}

var appStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print whether the game is in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		current, err := s.Device.AppCurrent(cmd.Context())
		if err != nil {
			return err
		}
		state := "not running"
		if current == s.Profile.Package {
			state = "running"
		}
		if current == "" {
			current = "-"
		}
		printf(cmd, "%s: %s (foreground: %s)\n", s.Profile.Package, state, current)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appCmd)
	appCmd.AddCommand(appStartCmd, appStopCmd, appStatusCmd)
}
