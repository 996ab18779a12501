// Command authsecure opens a session with the vendor backend and runs one
// authentication operation.
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

	"authsecure/internal/authsecure"
	"authsecure/internal/config"
	apperrors "authsecure/internal/errors"
	"authsecure/internal/hwid"
	"authsecure/internal/infrastructure"
	"authsecure/internal/transport"
	"authsecure/pkg/contracts"
	"authsecure/pkg/contracts/domain"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath string
	mode       string
	username   string
	password   string
	license    string
	endpoint   string
	identity   string
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("authsecure", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config (defaults to authsecure.yaml or configs/authsecure.yaml)")
	fs.StringVar(&opts.mode, "mode", "login", "init | login | register | license")
	fs.StringVar(&opts.username, "username", "", "account username")
	fs.StringVar(&opts.password, "password", "", "account password")
	fs.StringVar(&opts.license, "license", "", "license key")
	fs.StringVar(&opts.endpoint, "endpoint", "", "override the API endpoint")
	fs.StringVar(&opts.identity, "hwid", "system", "machine identity source: system | fingerprint")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, opts.check()
}

func (o *options) check() error {
	if o.version {
		return nil
	}
	switch o.mode {
	case "init":
	case "login":
		if o.username == "" || o.password == "" {
			return errors.New("-mode login requires -username and -password")
		}
	case "register":
		if o.username == "" || o.password == "" || o.license == "" {
			return errors.New("-mode register requires -username, -password and -license")
		}
	case "license":
		if o.license == "" {
			return errors.New("-mode license requires -license")
		}
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
	if o.identity != "system" && o.identity != "fingerprint" {
		return fmt.Errorf("unknown -hwid source %q", o.identity)
	}
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	if opts.endpoint != "" {
		cfg.Transport.Endpoint = opts.endpoint
	}
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	logger, closeLog, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	defer closeLog()

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tr, err := transport.New(cfg.Transport, transport.Options{Logger: logger})
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	var identity hwid.MachineIdentity = hwid.System(logger)
	if opts.identity == "fingerprint" {
		identity = hwid.Fingerprint(logger)
	}

	client, err := authsecure.New(cfg.Client, tr, identity, authsecure.Options{
		Logger: logger,
		Tracer: providers.Tracer,
		Meter:  providers.Meter,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	return execute(ctx, client, opts, stdout)
}

// execute performs Init and the selected operation, printing the outcome the
// way an interactive user expects.
func execute(ctx context.Context, client *authsecure.Client, opts *options, stdout io.Writer) int {
	fmt.Fprintln(stdout, "Connecting...")
	if err := client.Init(ctx); err != nil {
		fmt.Fprintln(stdout, "Init Failed:", describe(err))
		return exitFailure
	}
	fmt.Fprintln(stdout, "Initialized Successfully!")

	var (
		info    *domain.UserInfo
		err     error
		success string
		failure string
	)
	switch opts.mode {
	case "init":
		return exitOK
	case "login":
		info, err = client.Login(ctx, opts.username, opts.password)
		success, failure = "Logged in!", "Login Failed:"
	case "register":
		info, err = client.Register(ctx, opts.username, opts.password, opts.license)
		success, failure = "Registered Successfully!", "Register Failed:"
	case "license":
		info, err = client.RedeemLicense(ctx, opts.license)
		success, failure = "License Login Successful!", "License Login Failed:"
	}

	if err != nil {
		fmt.Fprintln(stdout, failure, describe(err))
		return exitFailure
	}

	fmt.Fprintln(stdout, success)
	if err := authsecure.PrintUserInfo(stdout, info); err != nil {
		return exitFailure
	}
	return exitOK
}

// describe prefers the server's message over the error chain
func describe(err error) string {
	if msg, ok := apperrors.ServerMessage(err); ok {
		return msg
	}
	return err.Error()
}

// newLogger writes console logs to stderr so stdout stays readable; file
// outputs go through the process-wide logger.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	if cfg.Output == "" || cfg.Output == "console" {
		return infrastructure.NewLogger(cfg, stderr), func() {}, nil
	}
	logger, err := infrastructure.InitializeLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, func() { _ = infrastructure.CloseLogFile() }, nil
}
