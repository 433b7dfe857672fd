// Package cmd wires the boostalk command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// NewRootCommand builds the boostalk command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "boostalk",
		Short: "Boostalk landing page with launch countdown and waitlist signup",
		Long: `boostalk serves the Boostalk pre-launch landing page.

The page shows a live countdown to the launch instant and a waitlist form
that forwards addresses to the hosted Mailchimp signup form.

Common workflows:

  Serve the site:
    boostalk serve --config config.yaml

  Watch the countdown in a terminal:
    boostalk countdown --at 2025-07-20T00:00:00

  Add an address to the waitlist without the browser:
    boostalk subscribe someone@example.com

  Show the configuration the server would run with:
    boostalk config

Configuration:
  Settings come from a JSON or YAML file. Empty values fall back to:
    BOOSTALK_MAILCHIMP_URL   Mailchimp form action URL
    BOOSTALK_LAUNCH_AT       Launch instant
    BOOSTALK_LISTEN          Listen address, host:port`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "config.json", "path to configuration (JSON, or YAML by extension)")

	root.AddCommand(
		newServeCommand(),
		newCountdownCommand(),
		newSubscribeCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boostalk %s\n", Version)
		},
	}
}
