package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/Boostalk/internal/mailchimp"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
	"github.com/Its-donkey/Boostalk/logging"
)

func newSubscribeCommand() *cobra.Command {
	var (
		formURL string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "subscribe <email>",
		Short: "Add an address to the waitlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if formURL != "" {
				cfg.Mailchimp.FormURL = formURL
			}
			logger := logging.New(cfg.App.Name, logging.ParseLevel(cfg.App.LogLevel), cmd.ErrOrStderr())
			client, err := mailchimp.New(mailchimp.Options{
				FormURL: cfg.Mailchimp.FormURL,
				Timeout: cfg.MailchimpTimeout(),
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("mailchimp: %w", err)
			}
			return subscribe(cmd, client, logger, strings.TrimSpace(args[0]), timeout)
		},
	}
	cmd.Flags().StringVar(&formURL, "form-url", "", "Mailchimp form action URL, overriding mailchimp.form_url")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the verdict")
	return cmd
}

// subscribe drives a single waitlist form through one submission and prints
// each status it passes through.
func subscribe(cmd *cobra.Command, sub waitlist.Subscriber, logger *logging.Logger, email string, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	form := waitlist.NewForm(waitlist.FormOptions{Subscriber: sub, Logger: logger})
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := form.SubmitEmail(ctx, email); err != nil {
		if errors.Is(err, waitlist.ErrInvalidEmail) {
			return errors.New(waitlist.InvalidEmailNotice)
		}
		return err
	}

	var last waitlist.Status
	for {
		state, changed := form.Changes()
		if state.Status != last {
			fmt.Fprintf(out, "status: %s\n", state.Status)
			last = state.Status
		}
		switch {
		case state.Submitted:
			fmt.Fprintln(out, waitlist.ConfirmationMessage)
			return nil
		case state.Status == waitlist.StatusError:
			return errors.New(state.ErrorMessage)
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("no answer from the waitlist service within %s", timeout)
		}
	}
}
