package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	paperless "github.com/glimte/paperless-go"
	"github.com/glimte/paperless-go/config"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	envFile    string
	rabbitURL  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "paperless",
		Short: "Messaging backbone of the paperless document pipeline",
		Long: `paperless declares the document pipeline topology on RabbitMQ, publishes
OCR and summarization messages and serves live result streams over SSE.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional .env file loaded before environment overrides")
	rootCmd.PersistentFlags().StringVarP(&flags.rabbitURL, "url", "u", "", "RabbitMQ connection URL (overrides config)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newTopologyCmd(flags),
		newQueuesCmd(flags),
		newPublishCmd(flags),
	)
	return rootCmd
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if flags.rabbitURL != "" {
		cfg.RabbitMQ.URI = flags.rabbitURL
		if err := config.Validate(cfg); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// connect builds a client from cfg. Stream options are added by the caller.
func connect(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...paperless.ClientOption) (*paperless.Client, error) {
	opts := append([]paperless.ClientOption{
		paperless.WithLogger(logger),
		paperless.WithConnectTimeout(config.ConnectTimeout(cfg)),
		paperless.WithReconnectDelay(config.ReconnectDelay(cfg)),
	}, extra...)

	client, err := paperless.NewClient(ctx, cfg.RabbitMQ.URI, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}
