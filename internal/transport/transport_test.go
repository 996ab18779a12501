package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authsecure/internal/config"
	apperrors "authsecure/internal/errors"
)

func newTestTransport(t *testing.T, endpoint string, mutate func(*config.TransportConfig)) *HTTPTransport {
	t.Helper()
	cfg := config.Default().Transport
	cfg.Endpoint = endpoint
	if mutate != nil {
		mutate(&cfg)
	}
	tr, err := New(cfg, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return tr
}

func TestSendPostsForm(t *testing.T) {
	var got url.Values
	var contentType, userAgent, method string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		userAgent = r.Header.Get("User-Agent")
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"sessionid":"abc"}`)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, func(c *config.TransportConfig) { c.UserAgent = "test-agent" })
	form := url.Values{"type": {"init"}, "name": {"app"}, "secret": {"s&=x"}}

	resp, err := tr.Send(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "test-agent", userAgent)
	assert.Equal(t, form, got)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"success":true,"sessionid":"abc"}`, string(resp.Body))
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"server error", http.StatusInternalServerError, `{"success":false}`, KindStatus},
		{"not found", http.StatusNotFound, "<html>404</html>", KindStatus},
		{"html body", http.StatusOK, "<html>maintenance</html>", KindDecode},
		{"array body", http.StatusOK, `[1,2,3]`, KindDecode},
		{"truncated json", http.StatusOK, `{"success":tr`, KindDecode},
		{"empty body", http.StatusOK, "", KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestTransport(t, srv.URL, nil).Send(context.Background(), url.Values{"type": {"init"}})
			require.Error(t, err)

			var tErr *TransportError
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, tt.kind, tErr.Kind)
			assert.Equal(t, tt.status, tErr.Status)
			assert.True(t, errors.Is(err, apperrors.ErrTransport))
			assert.False(t, errors.Is(err, apperrors.ErrOperationRejected))
		})
	}
}

func TestSendNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newTestTransport(t, endpoint, nil).Send(context.Background(), url.Values{})
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, KindNetwork, tErr.Kind)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestTransport(t, srv.URL, nil).Send(ctx, url.Values{})
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, KindNetwork, tErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendResponseLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"`+strings.Repeat("x", 100)+`"}`)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, func(c *config.TransportConfig) { c.MaxResponseBytes = 32 })
	_, err := tr.Send(context.Background(), url.Values{})
	assert.ErrorContains(t, err, "exceeds 32 bytes")
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.com", "://bad"} {
		cfg := config.Default().Transport
		cfg.Endpoint = endpoint
		_, err := New(cfg, Options{})
		assert.Error(t, err, endpoint)
	}
}

func TestResponseDecode(t *testing.T) {
	var out struct {
		Success bool `json:"success"`
	}
	require.NoError(t, (&Response{Status: 200, Body: []byte(`{"success":true}`)}).Decode(&out))
	assert.True(t, out.Success)

	err := (&Response{Status: 200, Body: []byte(`{"success":"yes"}`)}).Decode(&out)
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, KindDecode, tErr.Kind)
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{Kind: KindStatus, Status: 502, Err: errors.New("unexpected status 502")}
	assert.Equal(t, "transport status error (HTTP 502): unexpected status 502", err.Error())

	err = &TransportError{Kind: KindNetwork, Err: errors.New("refused")}
	assert.Equal(t, "transport network error: refused", err.Error())
}
