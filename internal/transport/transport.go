// Package transport sends form-encoded requests to the vendor endpoint and
// returns the raw JSON object it answers with.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"authsecure/internal/config"
)

// RequestTransport sends one key-value payload and returns the decoded
// response object. Implementations do not retry.
type RequestTransport interface {
	Send(ctx context.Context, form url.Values) (*Response, error)
}

// Response is a JSON object returned by the endpoint
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v. A body that does not fit v is a
// decode TransportError.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return wrapError(KindDecode, r.Status, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// Options customizes an HTTPTransport
type Options struct {
	// HTTPClient replaces the default client; its Transport is still wrapped
	// for tracing.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPTransport posts form bodies over HTTP(S)
type HTTPTransport struct {
	endpoint         string
	userAgent        string
	maxResponseBytes int64
	httpClient       *http.Client
	logger           *slog.Logger
}

// New creates an HTTPTransport for the configured endpoint
func New(cfg config.TransportConfig, opts Options) (*HTTPTransport, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint scheme %q", endpoint.Scheme)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultHTTPTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = config.DefaultMaxResponseBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	} else {
		clone := *httpClient
		httpClient = &clone
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "authsecure.transport " + r.Method
		}),
	)

	return &HTTPTransport{
		endpoint:         endpoint.String(),
		userAgent:        cfg.UserAgent,
		maxResponseBytes: cfg.MaxResponseBytes,
		httpClient:       httpClient,
		logger:           logger.With("component", "transport"),
	}, nil
}

// Endpoint returns the URL requests are posted to
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send implements RequestTransport
func (t *HTTPTransport) Send(ctx context.Context, form url.Values) (*Response, error) {
	start := time.Now()
	opType := form.Get("type")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, wrapError(KindNetwork, 0, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.WarnContext(ctx, "Request failed",
			slog.String("type", opType),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, wrapError(KindNetwork, 0, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	// read one byte past the limit to detect oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, wrapError(KindNetwork, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > t.maxResponseBytes {
		return nil, wrapError(KindDecode, resp.StatusCode,
			fmt.Errorf("response exceeds %d bytes", t.maxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.WarnContext(ctx, "Unexpected response status",
			slog.String("type", opType),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", truncate(body, 200)))
		return nil, wrapError(KindStatus, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := checkObject(body); err != nil {
		return nil, wrapError(KindDecode, resp.StatusCode, err)
	}

	t.logger.DebugContext(ctx, "Request completed",
		slog.String("type", opType),
		slog.Int("status_code", resp.StatusCode),
		slog.Int("response_bytes", len(body)),
		slog.Duration("duration", time.Since(start)))

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// checkObject accepts exactly one JSON object
func checkObject(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty response body")
	}
	if trimmed[0] != '{' {
		return errors.New("response is not a JSON object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("malformed JSON response: %w", err)
	}
	return nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "... (truncated)"
}
