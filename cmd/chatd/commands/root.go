// Package commands implements the chatd CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dongY99/mju-backend-60182195/internal/api"
	"github.com/dongY99/mju-backend-60182195/internal/config"
	"github.com/dongY99/mju-backend-60182195/internal/logger"
	"github.com/dongY99/mju-backend-60182195/internal/server"
	"github.com/dongY99/mju-backend-60182195/internal/telemetry"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	cfgFile   string
	format    string
	workers   int
	port      int
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "chatd",
	Short: "chatd - multi-user TCP chat server",
	Long: `chatd is a multi-user TCP chat server. Clients connect, pick a display
name, create or join rooms, and exchange messages broadcast to co-members.

The wire format is selected at startup and applies to every client of the
run: "textual" frames carry self-describing JSON objects, "binary" frames
carry a type header followed by an XDR payload.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	rootCmd.Flags().StringVar(&format, "format", "textual", "wire format: textual or binary")
	rootCmd.Flags().IntVar(&workers, "workers", 2, "number of message-processing workers")
	rootCmd.Flags().IntVar(&port, "port", 10221, "TCP port to listen on")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Flags beat the config file when set explicitly.
	if cmd.Flags().Changed("format") {
		cfg.Format = format
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "chatd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	metrics := server.NewMetrics(prometheus.DefaultRegisterer)
	srv, err := server.New(cfg, metrics)
	if err != nil {
		return err
	}

	if cfg.Admin.Enabled {
		admin := api.NewServer(cfg.Admin)
		admin.Start()
		defer func() {
			if err := admin.Stop(context.Background()); err != nil {
				logger.Error("admin server shutdown failed", "error", err)
			}
		}()
	}

	return srv.Run(ctx)
}
