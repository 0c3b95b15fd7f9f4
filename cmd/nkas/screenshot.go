package main

import (
	"fmt"
	"os"

	"github.com/aretw0/nkas/pkg/device"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the screen to a PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		s, _, _, closeFn, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		frame, err := s.Device.Screenshot(cmd.Context())
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := device.EncodePNG(f, frame); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to encode %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printf(cmd, "%s (%dx%d)\n", out, frame.Width, frame.Height)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().StringP("output", "o", "screenshot.png", "Output file")
}
