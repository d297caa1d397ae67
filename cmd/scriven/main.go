// Command scriven is the entry point for the Scriven input analytics engine:
// an API server that profiles how users compose messages, and a simulator
// that replays or synthesizes composition sessions from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/varenhold/scriven/internal/config"
)

func main() {
	root := &cli.Command{
		Name:  "scriven",
		Usage: "Behavioral input analytics — profile how a message was written, not just what it says",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "warn",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := config.LogLevel(cmd.String("log"))
			if !level.IsValid() {
				return ctx, fmt.Errorf("invalid log level %q", cmd.String("log"))
			}
			slog.SetDefault(newLogger(level))
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			simulateCmd(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "scriven: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogInfo:
		lvl = slog.LevelInfo
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
