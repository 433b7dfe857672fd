package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Its-donkey/Boostalk/internal/config"
	"github.com/Its-donkey/Boostalk/internal/mailchimp"
	"github.com/Its-donkey/Boostalk/internal/ratelimit"
	uiserver "github.com/Its-donkey/Boostalk/internal/ui/server"
	"github.com/Its-donkey/Boostalk/logging"
)

const (
	logFileName  = "boostalk.log"
	logMaxSizeMB = 10
	logMaxFiles  = 5
)

func newServeCommand() *cobra.Command {
	var (
		listen       string
		templatesDir string
		assetsDir    string
		logDir       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the landing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if templatesDir != "" {
				cfg.App.Templates = templatesDir
			}
			if assetsDir != "" {
				cfg.App.Assets = assetsDir
			}
			if logDir != "" {
				cfg.App.Logs = logDir
			}
			addr := listen
			if addr == "" {
				addr = cfg.ListenAddr()
			}
			return serve(cmd.Context(), cfg, addr)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to serve on (defaults to server.addr+port)")
	cmd.Flags().StringVar(&templatesDir, "templates", "", "directory of html/template files (defaults to the built-in set)")
	cmd.Flags().StringVar(&assetsDir, "assets", "", "directory holding styles.css and app.js (defaults to the built-in set)")
	cmd.Flags().StringVar(&logDir, "logs", "", "directory for log files (defaults to app.logs)")
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config, addr string) error {
	logger := logging.New(cfg.App.Name, logging.ParseLevel(cfg.App.LogLevel))
	if cfg.App.Logs != "" {
		fw, err := logging.NewFileWriter(cfg.App.Logs, logFileName, logMaxSizeMB, logMaxFiles)
		if err != nil {
			return err
		}
		defer fw.Close()
		logger.AddWriter(fw)
	}

	launch, err := cfg.LaunchTarget()
	if err != nil {
		return err
	}
	trusted, err := cfg.TrustedProxies()
	if err != nil {
		return err
	}
	client, err := mailchimp.New(mailchimp.Options{
		FormURL: cfg.Mailchimp.FormURL,
		Timeout: cfg.MailchimpTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("mailchimp: %w", err)
	}
	logger.Info("mailchimp", "waitlist signups go to hosted form", map[string]any{
		"endpoint": client.Endpoint(),
	})

	err = uiserver.Run(ctx, uiserver.Options{
		Listen:        addr,
		TemplatesDir:  cfg.App.Templates,
		AssetsDir:     cfg.App.Assets,
		SiteName:      cfg.App.Name,
		Logger:        logger,
		LaunchAt:      launch,
		LaunchLabel:   cfg.Launch.Label,
		Subscriber:    client,
		SessionTTL:    cfg.SessionTTL(),
		SettleTimeout: cfg.SettleTimeout(),
		SubmitLimit: ratelimit.Config{
			Rate:           cfg.Waitlist.SubmitRate,
			Burst:          cfg.Waitlist.SubmitBurst,
			TrustedProxies: trusted,
		},
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("general", "server stopped", nil)
		return nil
	}
	return err
}
