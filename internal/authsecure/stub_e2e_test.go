package authsecure_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authsecure/internal/authsecure"
	"authsecure/internal/config"
	apperrors "authsecure/internal/errors"
	"authsecure/internal/hwid"
	"authsecure/internal/shared/testutil"
	"authsecure/internal/stubserver"
	"authsecure/internal/transport"
	"authsecure/pkg/contracts/domain"
)

func e2eSeed() *stubserver.Seed {
	return &stubserver.Seed{
		Apps: []stubserver.AppSeed{
			{Name: "demo-app", OwnerID: "owner-123", Secret: "app-secret-value", Version: "1.0"},
			{Name: "paused-app", OwnerID: "owner-123", Secret: "app-secret-value", Version: "1.0", Paused: true},
		},
		Users: []stubserver.UserSeed{
			{App: "demo-app", Username: "bob", Password: "pw1", Subscriptions: []domain.Subscription{
				{Name: "premium", Expiry: "2099-01-01"},
				{Name: "addon", Expiry: "2098-06-30"},
			}},
		},
		Licenses: []stubserver.LicenseSeed{
			{App: "demo-app", Key: "KEY-AAAA-BBBB-CCCC", Subscription: "pro", Days: 30},
			{App: "demo-app", Key: "KEY-DDDD-EEEE-FFFF", Subscription: "lite", Days: 7},
		},
	}
}

// startStub serves a fresh backend and returns its API endpoint
func startStub(t *testing.T) string {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	backend, err := stubserver.NewBackend(e2eSeed(), time.Hour, stubserver.BackendOptions{
		Logger:     logger,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	cfg := config.Default().Stub
	cfg.RateLimit.Enabled = false
	srv, err := stubserver.New(cfg, backend, stubserver.Options{Logger: logger})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + stubserver.APIPath
}

func newStubClient(t *testing.T, endpoint string, cfg config.ClientConfig, identity hwid.MachineIdentity) *authsecure.Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	tcfg := config.Default().Transport
	tcfg.Endpoint = endpoint
	tr, err := transport.New(tcfg, transport.Options{Logger: logger})
	require.NoError(t, err)

	c, err := authsecure.New(cfg, tr, identity, authsecure.Options{Logger: logger})
	require.NoError(t, err)
	return c
}

func TestStubRoundTrip(t *testing.T) {
	endpoint := startStub(t)
	c := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static("machine-1"))
	ctx := context.Background()

	require.NoError(t, c.Init(ctx))
	require.True(t, c.Initialized())

	info, err := c.Login(ctx, "bob", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "bob", info.Username)
	assert.Equal(t, "machine-1", info.HWID)
	assert.Equal(t, "127.0.0.1", info.IP)
	require.Len(t, info.Subscriptions, 2)
	assert.Equal(t, "premium", info.Subscriptions[0].Name)
	assert.Equal(t, "addon", info.Subscriptions[1].Name)

	info, err = c.Register(ctx, "alice", "secret-pw", "KEY-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	require.Len(t, info.Subscriptions, 1)
	assert.Equal(t, "pro", info.Subscriptions[0].Name)

	info, err = c.Login(ctx, "alice", "secret-pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)

	info, err = c.RedeemLicense(ctx, "KEY-DDDD-EEEE-FFFF")
	require.NoError(t, err)
	assert.Equal(t, "KEY-DDDD-EEEE-FFFF", info.Username)

	var out bytes.Buffer
	require.NoError(t, authsecure.PrintUserInfo(&out, info))
	assert.Contains(t, out.String(), "  - lite | Expires: ")
}

func TestStubRejections(t *testing.T) {
	endpoint := startStub(t)
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		cfg := testutil.SampleClientConfig()
		cfg.Secret = "wrong"
		c := newStubClient(t, endpoint, cfg, hwid.Static("m"))

		err := c.Init(ctx)
		assert.ErrorIs(t, err, apperrors.ErrInitializationFailed)
		msg, _ := apperrors.ServerMessage(err)
		assert.Equal(t, stubserver.MsgInvalidApp, msg)
		assert.False(t, c.Initialized())
	})

	t.Run("paused app", func(t *testing.T) {
		cfg := testutil.SampleClientConfig()
		cfg.Name = "paused-app"
		c := newStubClient(t, endpoint, cfg, hwid.Static("m"))

		err := c.Init(ctx)
		msg, _ := apperrors.ServerMessage(err)
		assert.Equal(t, "App paused", msg)

		_, err = c.Login(ctx, "bob", "pw1")
		assert.ErrorIs(t, err, apperrors.ErrNotInitialized)
	})

	c := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static("machine-1"))
	require.NoError(t, c.Init(ctx))

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"bad password", func() error { _, err := c.Login(ctx, "bob", "nope"); return err }, stubserver.MsgInvalidCredentials},
		{"unknown license", func() error { _, err := c.RedeemLicense(ctx, "NOT-A-KEY"); return err }, stubserver.MsgInvalidLicense},
		{"taken username", func() error { _, err := c.Register(ctx, "bob", "pw", "KEY-AAAA-BBBB-CCCC"); return err }, stubserver.MsgUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, apperrors.ErrOperationRejected)
			msg, _ := apperrors.ServerMessage(err)
			assert.Equal(t, tt.want, msg)
			assert.True(t, c.Initialized())
		})
	}
}

func TestStubHWIDMismatch(t *testing.T) {
	endpoint := startStub(t)
	ctx := context.Background()

	first := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static("machine-1"))
	require.NoError(t, first.Init(ctx))
	_, err := first.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	second := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static("machine-2"))
	require.NoError(t, second.Init(ctx))
	_, err = second.Login(ctx, "bob", "pw1")
	assert.ErrorIs(t, err, apperrors.ErrOperationRejected)
	msg, _ := apperrors.ServerMessage(err)
	assert.Equal(t, stubserver.MsgHWIDMismatch, msg)
}

func TestStubSentinelIdentity(t *testing.T) {
	endpoint := startStub(t)
	ctx := context.Background()

	c := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static(""))
	require.NoError(t, c.Init(ctx))

	info, err := c.RedeemLicense(ctx, "KEY-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	assert.Equal(t, hwid.Sentinel, info.HWID)
}

func TestStubUnreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	endpoint := ts.URL
	ts.Close()

	c := newStubClient(t, endpoint, testutil.SampleClientConfig(), hwid.Static("m"))
	err := c.Init(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.NotErrorIs(t, err, apperrors.ErrInitializationFailed)
}
