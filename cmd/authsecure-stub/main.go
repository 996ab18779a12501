// Command authsecure-stub serves an in-memory vendor backend for local
// development against the authsecure client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"authsecure/internal/config"
	"authsecure/internal/infrastructure"
	"authsecure/internal/stubserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("authsecure-stub", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config")
	addr := fs.String("addr", "", "listen address (overrides stub.addr)")
	seedPath := fs.String("seed", "", "YAML seed file with apps, users and licenses (overrides stub.seed_file)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Stub.Addr = *addr
	}
	if *seedPath != "" {
		cfg.Stub.SeedFile = *seedPath
	}

	logger := infrastructure.NewLogger(cfg.Logging, stderr)
	if cfg.Logging.Output != "console" {
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer infrastructure.CloseLogFile()
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	seed := stubserver.DefaultSeed()
	if cfg.Stub.SeedFile != "" {
		if seed, err = stubserver.LoadSeed(cfg.Stub.SeedFile); err != nil {
			return err
		}
	} else {
		logger.Warn("No seed file configured, serving demo credentials")
	}

	backend, err := stubserver.NewBackend(seed, cfg.Stub.SessionTTL, stubserver.BackendOptions{Logger: logger})
	if err != nil {
		return err
	}

	opts := stubserver.Options{Logger: logger}
	if providers.Registry != nil {
		opts.Gatherers = []prometheus.Gatherer{providers.Registry}

		runtimeMetrics, err := infrastructure.NewRuntimeMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("failed to register runtime metrics: %w", err)
		}
		defer runtimeMetrics.Stop()
	}
	srv, err := stubserver.New(cfg.Stub, backend, opts)
	if err != nil {
		return err
	}

	logger.Info("Starting stub backend",
		slog.String("addr", cfg.Stub.Addr),
		slog.Int("apps", len(seed.Apps)),
		slog.Int("users", len(seed.Users)),
		slog.Int("licenses", len(seed.Licenses)),
		slog.Bool("rate_limit", cfg.Stub.RateLimit.Enabled))

	return srv.Run(ctx)
}
