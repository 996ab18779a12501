package stubserver

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "authsecure/internal/errors"
	api "authsecure/pkg/contracts/api/v1"
	"authsecure/pkg/contracts/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func testSeed() *Seed {
	return &Seed{
		Apps: []AppSeed{
			{Name: "app", OwnerID: "owner", Secret: "secret", Version: "1.0"},
			{Name: "paused", OwnerID: "owner", Secret: "secret", Version: "1.0", Paused: true},
		},
		Users: []UserSeed{
			{App: "app", Username: "bob", Password: "pw1", Subscriptions: []domain.Subscription{
				{Name: "premium", Expiry: "2027-01-01"},
			}},
			{App: "app", Username: "old", Password: "pw", Subscriptions: []domain.Subscription{
				{Name: "basic", Expiry: "2020-01-01"},
			}},
			{App: "app", Username: "bound", Password: "pw", HWID: "machine-a"},
		},
		Licenses: []LicenseSeed{
			{App: "app", Key: "KEY-1", Subscription: "pro", Days: 30},
			{App: "app", Key: "KEY-2", Subscription: "pro", Days: 10},
		},
	}
}

func newTestBackend(t *testing.T) (*Backend, *clock) {
	t.Helper()
	clk := &clock{now: testNow}
	b, err := NewBackend(testSeed(), time.Hour, BackendOptions{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        clk.Now,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return b, clk
}

var creds = api.AppCredentials{Name: "app", OwnerID: "owner"}

func openSession(t *testing.T, b *Backend) string {
	t.Helper()
	id, err := b.Init(api.InitRequest{AppCredentials: creds, Secret: "secret", Version: "1.0"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func assertRejected(t *testing.T, err error, want string) {
	t.Helper()
	require.Error(t, err)
	msg, ok := apperrors.ServerMessage(err)
	require.True(t, ok, "expected a server message, got %v", err)
	assert.Equal(t, want, msg)
}

func TestBackendInit(t *testing.T) {
	b, _ := newTestBackend(t)

	tests := []struct {
		name string
		req  api.InitRequest
		want string
	}{
		{"unknown app", api.InitRequest{AppCredentials: api.AppCredentials{Name: "nope", OwnerID: "owner"}, Secret: "secret", Version: "1.0"}, MsgInvalidApp},
		{"wrong owner", api.InitRequest{AppCredentials: api.AppCredentials{Name: "app", OwnerID: "x"}, Secret: "secret", Version: "1.0"}, MsgInvalidApp},
		{"wrong secret", api.InitRequest{AppCredentials: creds, Secret: "wrong", Version: "1.0"}, MsgInvalidApp},
		{"old version", api.InitRequest{AppCredentials: creds, Secret: "secret", Version: "0.9"}, MsgVersionMismatch},
		{"paused", api.InitRequest{AppCredentials: api.AppCredentials{Name: "paused", OwnerID: "owner"}, Secret: "secret", Version: "1.0"}, MsgAppPaused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Init(tt.req)
			assertRejected(t, err, tt.want)
			assert.ErrorIs(t, err, apperrors.ErrInitializationFailed)
		})
	}

	a, b2 := openSession(t, b), openSession(t, b)
	assert.NotEqual(t, a, b2)
	assert.Equal(t, 2, b.ActiveSessions())
}

func TestBackendLogin(t *testing.T) {
	b, _ := newTestBackend(t)
	sid := openSession(t, b)

	login := func(user, pass, hwid string) (*domain.UserInfo, error) {
		return b.Login(api.LoginRequest{AppCredentials: creds, SessionID: sid, Username: user, Password: pass, HWID: hwid}, "1.2.3.4")
	}

	info, err := login("bob", "pw1", "machine-b")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserInfo{
		Username:      "bob",
		HWID:          "machine-b",
		IP:            "1.2.3.4",
		Subscriptions: []domain.Subscription{{Name: "premium", Expiry: "2027-01-01"}},
	}, info)

	_, err = login("bob", "wrong", "machine-b")
	assertRejected(t, err, MsgInvalidCredentials)
	_, err = login("nobody", "pw1", "machine-b")
	assertRejected(t, err, MsgInvalidCredentials)

	// first login bound bob to machine-b
	_, err = login("bob", "pw1", "machine-c")
	assertRejected(t, err, MsgHWIDMismatch)

	_, err = login("bound", "pw", "machine-a")
	require.NoError(t, err)
	_, err = login("bound", "pw", "machine-z")
	assertRejected(t, err, MsgHWIDMismatch)

	_, err = login("old", "pw", "machine-a")
	assertRejected(t, err, MsgSubscriptionExpired)
}

func TestBackendSessionChecks(t *testing.T) {
	b, clk := newTestBackend(t)
	sid := openSession(t, b)

	_, err := b.Login(api.LoginRequest{AppCredentials: creds, SessionID: "forged", Username: "bob", Password: "pw1", HWID: "h"}, "ip")
	assertRejected(t, err, MsgInvalidSession)

	other := api.AppCredentials{Name: "app", OwnerID: "someone-else"}
	_, err = b.Login(api.LoginRequest{AppCredentials: other, SessionID: sid, Username: "bob", Password: "pw1", HWID: "h"}, "ip")
	assertRejected(t, err, MsgInvalidApp)

	clk.now = clk.now.Add(2 * time.Hour)
	_, err = b.Login(api.LoginRequest{AppCredentials: creds, SessionID: sid, Username: "bob", Password: "pw1", HWID: "h"}, "ip")
	assertRejected(t, err, MsgInvalidSession)
	assert.Zero(t, b.ActiveSessions())
}

func TestBackendRegister(t *testing.T) {
	b, _ := newTestBackend(t)
	sid := openSession(t, b)

	register := func(user, key, hwid string) (*domain.UserInfo, error) {
		return b.Register(api.RegisterRequest{AppCredentials: creds, SessionID: sid, Username: user, Password: "pw", License: key, HWID: hwid}, "ip")
	}

	info, err := register("alice", "KEY-1", "machine-a")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "machine-a", info.HWID)
	assert.Equal(t, []domain.Subscription{{Name: "pro", Expiry: "2026-03-31"}}, info.Subscriptions)

	_, err = register("alice", "KEY-2", "machine-a")
	assertRejected(t, err, MsgUsernameTaken)
	_, err = register("carol", "KEY-1", "machine-a")
	assertRejected(t, err, MsgLicenseUsed)
	_, err = register("carol", "NOPE", "machine-a")
	assertRejected(t, err, MsgInvalidLicense)

	// the new account can log in
	_, err = b.Login(api.LoginRequest{AppCredentials: creds, SessionID: sid, Username: "alice", Password: "pw", HWID: "machine-a"}, "ip")
	require.NoError(t, err)
}

func TestBackendLicense(t *testing.T) {
	b, _ := newTestBackend(t)
	sid := openSession(t, b)

	redeem := func(key, hwid string) (*domain.UserInfo, error) {
		return b.License(api.LicenseRequest{AppCredentials: creds, SessionID: sid, License: key, HWID: hwid}, "ip")
	}

	info, err := redeem("KEY-2", "machine-a")
	require.NoError(t, err)
	assert.Equal(t, "KEY-2", info.Username)
	assert.Equal(t, []domain.Subscription{{Name: "pro", Expiry: "2026-03-11"}}, info.Subscriptions)

	_, err = redeem("KEY-2", "machine-a")
	require.NoError(t, err)
	_, err = redeem("KEY-2", "machine-b")
	assertRejected(t, err, MsgHWIDMismatch)
	_, err = redeem("NOPE", "machine-a")
	assertRejected(t, err, MsgInvalidLicense)

	_, err = b.Register(api.RegisterRequest{AppCredentials: creds, SessionID: sid, Username: "dave", Password: "pw", License: "KEY-1", HWID: "h"}, "ip")
	require.NoError(t, err)
	_, err = redeem("KEY-1", "h")
	assertRejected(t, err, MsgLicenseUsed)
}

func TestBackendPurgeExpired(t *testing.T) {
	b, clk := newTestBackend(t)
	openSession(t, b)
	clk.now = clk.now.Add(30 * time.Minute)
	openSession(t, b)

	clk.now = clk.now.Add(45 * time.Minute)
	assert.Equal(t, 1, b.PurgeExpired())
}

func TestBackendSeedPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	seed := testSeed()
	seed.Users = append(seed.Users, UserSeed{App: "app", Username: "pre", PasswordHash: string(hash)})
	b, err := NewBackend(seed, time.Hour, BackendOptions{Now: func() time.Time { return testNow }, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	sid := openSession(t, b)
	_, err = b.Login(api.LoginRequest{AppCredentials: creds, SessionID: sid, Username: "pre", Password: "hashed-pw", HWID: "h"}, "ip")
	assert.NoError(t, err)
}
