package authsecure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"authsecure/internal/config"
	apperrors "authsecure/internal/errors"
	"authsecure/internal/hwid"
	"authsecure/internal/infrastructure"
	"authsecure/internal/transport"
	api "authsecure/pkg/contracts/api/v1"
	"authsecure/pkg/contracts/domain"
)

// Options customizes a Client. Zero values select the global defaults.
type Options struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Client is one logical session with the vendor backend. It is safe for
// concurrent use; the session id is written once by Init.
type Client struct {
	cfg       config.ClientConfig
	transport transport.RequestTransport
	identity  hwid.MachineIdentity
	validate  *validator.Validate

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *clientMetrics

	initMu    sync.Mutex
	mu        sync.RWMutex
	sessionID string
}

// New creates an uninitialized client. A nil identity selects the platform
// machine identity.
func New(cfg config.ClientConfig, tr transport.RequestTransport, identity hwid.MachineIdentity, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewInvalidRequest("new", err)
	}
	if tr == nil {
		return nil, apperrors.NewInvalidRequest("new", errors.New("transport is required"))
	}

	logger := infrastructure.WithComponent(opts.Logger, "authsecure")
	if identity == nil {
		identity = hwid.System(logger)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(infrastructure.InstrumentationName)
	}
	metrics, err := newClientMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:       cfg,
		transport: tr,
		identity:  identity,
		validate:  validator.New(),
		logger:    logger,
		tracer:    tracer,
		metrics:   metrics,
	}, nil
}

// Config returns the credentials the client was built with
func (c *Client) Config() config.ClientConfig {
	return c.cfg
}

// Initialized reports whether Init has succeeded
func (c *Client) Initialized() bool {
	_, ok := c.session()
	return ok
}

// SessionID returns the session id, or "" before Init
func (c *Client) SessionID() string {
	id, _ := c.session()
	return id
}

func (c *Client) session() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID, c.sessionID != ""
}

func (c *Client) credentials() api.AppCredentials {
	return api.AppCredentials{Name: c.cfg.Name, OwnerID: c.cfg.OwnerID}
}

// Init opens the session. On any failure the client stays uninitialized and
// Init may be called again.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.Initialized() {
		return apperrors.ErrAlreadyInitialized
	}

	req := api.InitRequest{
		AppCredentials: c.credentials(),
		Secret:         c.cfg.Secret,
		Version:        c.cfg.Version,
	}

	var sessionID string
	err := c.call(ctx, req, func(r *Result) error {
		if !r.Success {
			return apperrors.NewInitializationFailed(r.Message)
		}
		if r.SessionID == "" {
			return apperrors.NewInitializationFailed("response did not include a session id")
		}
		sessionID = r.SessionID
		return nil
	}, slog.String("version", c.cfg.Version))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return nil
}

// Login authenticates a user by name and password
func (c *Client) Login(ctx context.Context, username, password string) (*domain.UserInfo, error) {
	return c.authenticate(ctx, api.OperationLogin, func(sessionID, machineID string) api.Request {
		return api.LoginRequest{
			AppCredentials: c.credentials(),
			SessionID:      sessionID,
			Username:       username,
			Password:       password,
			HWID:           machineID,
		}
	}, username, "")
}

// Register creates a user from a license key and authenticates it
func (c *Client) Register(ctx context.Context, username, password, licenseKey string) (*domain.UserInfo, error) {
	return c.authenticate(ctx, api.OperationRegister, func(sessionID, machineID string) api.Request {
		return api.RegisterRequest{
			AppCredentials: c.credentials(),
			SessionID:      sessionID,
			Username:       username,
			Password:       password,
			License:        licenseKey,
			HWID:           machineID,
		}
	}, username, licenseKey)
}

// RedeemLicense authenticates with a license key alone
func (c *Client) RedeemLicense(ctx context.Context, licenseKey string) (*domain.UserInfo, error) {
	return c.authenticate(ctx, api.OperationLicense, func(sessionID, machineID string) api.Request {
		return api.LicenseRequest{
			AppCredentials: c.credentials(),
			SessionID:      sessionID,
			License:        licenseKey,
			HWID:           machineID,
		}
	}, "", licenseKey)
}

// authenticate runs one user operation against the current session. The
// machine identity is looked up per call.
func (c *Client) authenticate(ctx context.Context, op api.OperationType, build func(sessionID, machineID string) api.Request, username, licenseKey string) (*domain.UserInfo, error) {
	sessionID, ok := c.session()
	if !ok {
		c.logger.DebugContext(ctx, "Operation attempted before init", slog.String("operation", string(op)))
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrNotInitialized)
	}

	machineID := c.identity.HWID()
	req := build(sessionID, machineID)

	var info *domain.UserInfo
	err := c.call(ctx, req, func(r *Result) error {
		if !r.Success {
			return apperrors.NewRejected(string(op), r.Message)
		}
		if r.Info == nil {
			return &transport.TransportError{Kind: transport.KindDecode, Err: errors.New("success response without user info")}
		}
		info = r.Info
		return nil
	}, credentialAttrs(username, licenseKey, machineID)...)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// call validates, sends and decodes one request inside a span, then lets
// interpret turn the decoded result into the operation error, if any.
func (c *Client) call(ctx context.Context, req api.Request, interpret func(*Result) error, attrs ...slog.Attr) error {
	op := string(req.Type())
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := c.tracer.Start(ctx, "authsecure."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("authsecure.operation", op)))

	start := time.Now()
	err := c.roundTrip(ctx, req, interpret)
	elapsed := time.Since(start)

	outcome := classify(err)
	c.metrics.record(ctx, op, outcome, elapsed)
	endSpan(span, outcome, err)

	attrs = append(attrs, slog.Duration("duration", elapsed))
	switch outcome {
	case outcomeSuccess:
		c.logAction(ctx, slog.LevelInfo, op, "succeeded", attrs...)
	case outcomeRejected, outcomeInitFailed:
		msg, _ := apperrors.ServerMessage(err)
		c.logAction(ctx, slog.LevelWarn, op, "rejected", append(attrs, slog.String("message", msg))...)
	default:
		c.logAction(ctx, slog.LevelError, op, "failed", append(attrs, slog.String("error", err.Error()))...)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req api.Request, interpret func(*Result) error) error {
	op := string(req.Type())
	if err := c.validate.Struct(req); err != nil {
		return apperrors.NewInvalidRequest(op, err)
	}

	resp, err := c.transport.Send(ctx, req.Values())
	if err != nil {
		if !errors.Is(err, apperrors.ErrTransport) {
			err = &transport.TransportError{Kind: transport.KindNetwork, Err: err}
		}
		return err
	}

	result, err := decodeResult(resp)
	if err != nil {
		return err
	}
	return interpret(result)
}
