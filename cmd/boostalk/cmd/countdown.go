package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/Boostalk/internal/countdown"
)

func newCountdownCommand() *cobra.Command {
	var (
		at       string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Print the launch countdown until it expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if at != "" {
				cfg.Launch.At = at
			}
			target, err := cfg.LaunchTarget()
			if err != nil {
				return err
			}
			return runCountdown(cmd, countdown.Config{Target: target, Interval: interval})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "launch instant, overriding launch.at")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between updates")
	return cmd
}

// runCountdown prints one line per tick and returns once the target passes or
// the command's context is cancelled.
func runCountdown(cmd *cobra.Command, cfg countdown.Config) error {
	cd := countdown.New(cfg)
	snapshot := cd.Snapshot()
	fmt.Fprintln(cmd.OutOrStdout(), snapshot.Display)
	if snapshot.Expired {
		return nil
	}

	updates, err := cd.Start(cmd.Context())
	if err != nil {
		return err
	}
	defer cd.Stop()
	for display := range updates {
		fmt.Fprintln(cmd.OutOrStdout(), display)
	}
	return nil
}
