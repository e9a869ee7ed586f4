package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/checkout-pipeline/internal/app"
	"github.com/iliamunaev/checkout-pipeline/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(run).RunContext(ctx, os.Args); err != nil {
		slog.Error("checkout-server failed", "err", err)
		os.Exit(1)
	}
}

// newApp builds the command line. run receives the merged configuration.
func newApp(run func(ctx context.Context, cfg config.Config) error) *cli.App {
	return &cli.App{
		Name:  "checkout-server",
		Usage: "Serve the payment-sheet checkout flow over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file path",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
			&cli.DurationFlag{
				Name:  "request-timeout",
				Usage: "How long /checkout/authorize waits for a disposition",
			},
			&cli.DurationFlag{
				Name:  "token-delay",
				Usage: "Simulated tokenization latency",
			},
			&cli.DurationFlag{
				Name:  "charge-delay",
				Usage: "Simulated charge latency",
			},
			&cli.BoolFlag{
				Name:  "fail-tokenization",
				Usage: "Make every tokenization fail",
			},
			&cli.BoolFlag{
				Name:  "decline-charge",
				Usage: "Make every charge decline",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(c.Context, cfg)
		},
	}
}

// loadConfig reads --config, if given, and applies the flags set on top.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout.Duration = c.Duration("request-timeout")
	}
	if c.IsSet("token-delay") {
		cfg.Tokenizer.Delay.Duration = c.Duration("token-delay")
	}
	if c.IsSet("charge-delay") {
		cfg.Charge.Delay.Duration = c.Duration("charge-delay")
	}
	if c.IsSet("fail-tokenization") {
		cfg.Tokenizer.Fail = c.Bool("fail-tokenization")
	}
	if c.IsSet("decline-charge") {
		cfg.Charge.Decline = c.Bool("decline-charge")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, ln, logger)
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down
// gracefully within the configured shutdown timeout.
func serve(ctx context.Context, cfg config.Config, ln net.Listener, logger *slog.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}

	// WriteTimeout must outlast the authorize wait.
	srv := &http.Server{
		Handler:           a.Handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      cfg.RequestTimeout.Duration + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", ln.Addr().String(), "product", cfg.Product.Name)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
		defer cancel()

		err := srv.Shutdown(sctx)
		return errors.Join(err, a.Close(sctx))
	})

	return g.Wait()
}
