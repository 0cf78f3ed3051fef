package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/i2y/switchboard-mcp/configs"
)

const (
	serverName    = "switchboard"
	serverVersion = "v1"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "switchboard-mcp",
		Usage:   "Expose the Switchboard API as MCP tools",
		Version: serverVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "Transport mode: stdio or streamable-http",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Action: runServer,
	}
}

// loadConfig reads the configuration and applies command line overrides,
// which win over both the file and the environment.
func loadConfig(cmd *cli.Command) (*configs.Config, error) {
	cfg, err := configs.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.IsSet("transport") {
		cfg.Transport = cmd.String("transport")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to LOG_FILE when set, otherwise to stderr. Stdout is
// reserved for the protocol in stdio mode.
func newLogger(cfg *configs.Config) (*slog.Logger, func() error, error) {
	var out io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
		}
		out = f
		closeFn = f.Close
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()})), closeFn, nil
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("transport", cfg.Transport))

	shutdownOtel, err := initOtelProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch cfg.Transport {
	case configs.TransportStreamableHTTP:
		return app.serveHTTP(ctx)
	default:
		return app.serveStdio(ctx)
	}
}
