package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/siteharvester/gateway/backend"
	"github.com/siteharvester/gateway/config"
	"github.com/siteharvester/gateway/log"
	"github.com/siteharvester/gateway/proxy"
	"github.com/siteharvester/gateway/slack"
)

var (
	envFiles   []string
	configPath string

	gatewayURL string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "siteharvester",
	Short: "SiteHarvester gateway and form client",
	Long: `SiteHarvester turns a web page into a downloadable PDF report.

  serve   - run the gateway in front of the harvesting backend
  harvest - submit a URL through a running gateway and save the PDF
  contact - submit the contact form through a running gateway`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFiles...)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Dotenv files to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "http://localhost:8080", "Base URL of the gateway, for the form commands")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall timeout of a form submission, 0 for none")

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML server config file")

	rootCmd.AddCommand(serveCmd, harvestCmd, contactCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := log.NewLogger("main")

	cfg, err := config.LoadServer(configPath, os.LookupEnv)
	if err != nil {
		return err
	}

	source := config.NewEnv()
	// Missing backend settings only disable the affected endpoint, so they are reported
	// here and the server starts anyway.
	if _, err := source.Harvest(); err != nil {
		log.Warn().Err(err).Msg("Harvest endpoint is not configured")
	}
	if _, err := source.Contact(); err != nil {
		log.Warn().Err(err).Msg("Contact endpoint is not configured")
	}

	deps := proxy.Deps{
		Log:     log.With().Str("component", "proxy").Logger(),
		Source:  source,
		Backend: backend.NewClient(),
	}
	if cfg.SlackWebhook != "" {
		deps.Notifier = slack.NewWebhookNotifier(cfg.SlackWebhook)
		log.Info().Msg("Forwarding contact submissions to Slack")
	}

	srv := proxy.NewServer(log, cfg, proxy.NewRouter(deps))
	if err := srv.Run(cmd.Context()); err != nil {
		log.Error().Err(err).Msg("Gateway stopped")
		return err
	}

	log.Info().Msg("Gateway stopped")
	return nil
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, "Downloads")
}
