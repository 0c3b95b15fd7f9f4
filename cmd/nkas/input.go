package main

import (
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/spf13/cobra"
)

var tapCmd = &cobra.Command{
	Use:   "tap X Y",
	Short: "Tap a screen coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return s.Device.ClickCoordinate(cmd.Context(), args[0], args[1])
	},
}

var swipeCmd = &cobra.Command{
	Use:   "swipe X1 Y1 X2 Y2",
	Short: "Swipe between two coordinates (swipes under 10px are dropped)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, _ := cmd.Flags().GetDuration("duration")
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return s.Device.SwipeDuration(cmd.Context(), []any{args[0], args[1]}, []any{args[2], args[3]}, d)
	},
}

var dragCmd = &cobra.Command{
	Use:   "drag X1 Y1 X2 Y2",
	Short: "Press, move and release slowly between two coordinates",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, _ := cmd.Flags().GetDuration("duration")
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return s.Device.Drag(cmd.Context(), []any{args[0], args[1]}, []any{args[2], args[3]}, d)
	},
}

func init() {
	rootCmd.AddCommand(tapCmd, swipeCmd, dragCmd)
	swipeCmd.Flags().Duration("duration", domain.DefaultSwipeDuration, "Swipe duration")
	dragCmd.Flags().Duration("duration", domain.DefaultDragDuration, "Drag duration")
}
