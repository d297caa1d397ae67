package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/urfave/cli/v3"

	"github.com/varenhold/scriven/internal/config"
	"github.com/varenhold/scriven/internal/httpapi"
	"github.com/varenhold/scriven/internal/observe"
	"github.com/varenhold/scriven/internal/registry"
	"github.com/varenhold/scriven/internal/responder"
)

// telemetryShutdownTimeout bounds the final metrics/traces flush.
const telemetryShutdownTimeout = 15 * time.Second

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the analytics API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file (defaults apply when omitted)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Error("config file not found", "path", path)
			}
			return err
		}
		cfg = loaded
	}
	if cfg.Server.LogLevel != "" {
		slog.SetDefault(newLogger(cfg.Server.LogLevel))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers (metrics via the Prometheus bridge, traces local).
	telemetryShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(shCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	// InitProvider registered the SDK meter provider globally; attach the
	// instruments to it so they flow through the Prometheus bridge.
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	resp, err := responder.NewFromConfig(cfg.Responder)
	if err != nil {
		return err
	}
	if resp == nil {
		slog.Info("no responder configured; /respond is disabled")
	} else {
		slog.Info("responder configured",
			"provider", cfg.Responder.Provider.Name,
			"model", cfg.Responder.Provider.Model,
			"fallback", cfg.Responder.Fallback.Name,
		)
	}

	srv := httpapi.New(httpapi.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		Registry:    registry.New(),
		Responder:   resp,
		Metrics:     metrics,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	slog.Info("scriven starting",
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("goodbye")
	return nil
}
