package main

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	setTimeAt     string
	shutdownDelay time.Duration
)

var setTimeCmd = &cobra.Command{
	Use:   "settime",
	Short: "Set the board clock (default: now)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		at := time.Now().UTC()
		if setTimeAt != "" {
			t, err := time.Parse(time.RFC3339, setTimeAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			at = t
		}
		l, err := openLink()
		if err != nil {
			return err
		}
		defer l.Close()
		if err := l.SetTime(at); err != nil {
			return err
		}
		glog.Infof("board clock set to %s", at.Format(time.RFC3339))
		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask the board to cut power after a grace delay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if shutdownDelay < 0 {
			return fmt.Errorf("--delay must not be negative")
		}
		l, err := openLink()
		if err != nil {
			return err
		}
		defer l.Close()
		if err := l.Shutdown(shutdownDelay); err != nil {
			return err
		}
		glog.Infof("shutdown requested, rails drop in %s", shutdownDelay)
		return nil
	},
}

func init() {
	setTimeCmd.Flags().StringVar(&setTimeAt, "at", "", "time to set, RFC3339")
	shutdownCmd.Flags().DurationVar(&shutdownDelay, "delay", 5*time.Second, "grace period before the rails drop")
	rootCmd.AddCommand(setTimeCmd, shutdownCmd)
}
