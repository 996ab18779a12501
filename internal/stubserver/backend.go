package stubserver

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "authsecure/internal/errors"
	api "authsecure/pkg/contracts/api/v1"
	"authsecure/pkg/contracts/domain"
)

// Messages returned in failure envelopes
const (
	MsgInvalidApp          = "Invalid application credentials"
	MsgVersionMismatch     = "Invalid application version"
	MsgAppPaused           = "App paused"
	MsgInvalidSession      = "Invalid session"
	MsgInvalidCredentials  = "Invalid username or password"
	MsgUsernameTaken       = "Username already exists"
	MsgInvalidLicense      = "Invalid license key"
	MsgLicenseUsed         = "License key already used"
	MsgHWIDMismatch        = "HWID mismatch"
	MsgSubscriptionExpired = "Subscription expired"
)

// ExpiryLayout formats subscription expiry dates granted by licenses
const ExpiryLayout = "2006-01-02"

type account struct {
	passwordHash  []byte
	hwid          string
	subscriptions []domain.Subscription
}

type licenseKey struct {
	subscription string
	days         int
	usedBy       string
}

type session struct {
	app     string
	expires time.Time
}

type appState struct {
	AppSeed
	users    map[string]*account
	licenses map[string]*licenseKey
}

// BackendOptions tunes a Backend
type BackendOptions struct {
	Logger     *slog.Logger
	Now        func() time.Time
	BcryptCost int
}

// Backend is an in-memory implementation of the vendor protocol
type Backend struct {
	mu       sync.Mutex
	apps     map[string]*appState
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
	cost     int
	logger   *slog.Logger
}

// NewBackend builds the backend state from seed
func NewBackend(seed *Seed, sessionTTL time.Duration, opts BackendOptions) (*Backend, error) {
	if seed == nil {
		seed = DefaultSeed()
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		apps:     make(map[string]*appState, len(seed.Apps)),
		sessions: make(map[string]session),
		ttl:      sessionTTL,
		now:      opts.Now,
		cost:     opts.BcryptCost,
		logger:   opts.Logger,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.cost == 0 {
		b.cost = bcrypt.DefaultCost
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "stub_backend")

	for _, a := range seed.Apps {
		b.apps[a.Name] = &appState{
			AppSeed:  a,
			users:    make(map[string]*account),
			licenses: make(map[string]*licenseKey),
		}
	}

	for _, u := range seed.Users {
		hash := []byte(u.PasswordHash)
		if len(hash) == 0 {
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(u.Password), b.cost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password for %q: %w", u.Username, err)
			}
		}
		b.apps[u.App].users[u.Username] = &account{
			passwordHash:  hash,
			hwid:          u.HWID,
			subscriptions: append([]domain.Subscription(nil), u.Subscriptions...),
		}
	}

	for _, l := range seed.Licenses {
		b.apps[l.App].licenses[l.Key] = &licenseKey{subscription: l.Subscription, days: l.Days}
	}

	return b, nil
}

// Init verifies application credentials and opens a session
func (b *Backend) Init(req api.InitRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	app, ok := b.apps[req.Name]
	if !ok || !equal(app.OwnerID, req.OwnerID) || !equal(app.Secret, req.Secret) {
		return "", apperrors.NewInitializationFailed(MsgInvalidApp)
	}
	if app.Paused {
		return "", apperrors.NewInitializationFailed(MsgAppPaused)
	}
	if app.Version != req.Version {
		return "", apperrors.NewInitializationFailed(MsgVersionMismatch)
	}

	id := uuid.NewString()
	b.sessions[id] = session{app: app.Name, expires: b.now().Add(b.ttl)}
	b.logger.Debug("Session opened", slog.String("app", app.Name))
	return id, nil
}

// Login authenticates an existing account
func (b *Backend) Login(req api.LoginRequest, ip string) (*domain.UserInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const op = "login"
	app, err := b.authorize(op, req.AppCredentials, req.SessionID)
	if err != nil {
		return nil, err
	}

	acct, ok := app.users[req.Username]
	if !ok || len(acct.passwordHash) == 0 ||
		bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return nil, apperrors.NewRejected(op, MsgInvalidCredentials)
	}
	if err := b.checkAccount(op, acct, req.HWID); err != nil {
		return nil, err
	}
	return userInfo(req.Username, acct, ip), nil
}

// Register creates an account from an unused license key
func (b *Backend) Register(req api.RegisterRequest, ip string) (*domain.UserInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const op = "register"
	app, err := b.authorize(op, req.AppCredentials, req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, taken := app.users[req.Username]; taken {
		return nil, apperrors.NewRejected(op, MsgUsernameTaken)
	}
	lic, err := unusedLicense(op, app, req.License)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), b.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := &account{
		passwordHash:  hash,
		hwid:          req.HWID,
		subscriptions: []domain.Subscription{b.grant(lic)},
	}
	app.users[req.Username] = acct
	lic.usedBy = req.Username

	b.logger.Info("Account registered", slog.String("app", app.Name), slog.String("username", req.Username))
	return userInfo(req.Username, acct, ip), nil
}

// License authenticates with a key alone. The first redemption creates an
// account named after the key; later redemptions must come from the same
// machine.
func (b *Backend) License(req api.LicenseRequest, ip string) (*domain.UserInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const op = "license"
	app, err := b.authorize(op, req.AppCredentials, req.SessionID)
	if err != nil {
		return nil, err
	}

	lic, ok := app.licenses[req.License]
	if !ok {
		return nil, apperrors.NewRejected(op, MsgInvalidLicense)
	}

	switch lic.usedBy {
	case "":
		acct := &account{
			hwid:          req.HWID,
			subscriptions: []domain.Subscription{b.grant(lic)},
		}
		app.users[req.License] = acct
		lic.usedBy = req.License
		return userInfo(req.License, acct, ip), nil
	case req.License:
		acct := app.users[req.License]
		if err := b.checkAccount(op, acct, req.HWID); err != nil {
			return nil, err
		}
		return userInfo(req.License, acct, ip), nil
	default:
		return nil, apperrors.NewRejected(op, MsgLicenseUsed)
	}
}

// PurgeExpired drops expired sessions and reports how many remain
func (b *Backend) PurgeExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, s := range b.sessions {
		if !now.Before(s.expires) {
			delete(b.sessions, id)
		}
	}
	return len(b.sessions)
}

// ActiveSessions returns the number of open sessions, expired ones included
// until the next purge.
func (b *Backend) ActiveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// authorize checks the app credentials and that the session belongs to the app
func (b *Backend) authorize(op string, creds api.AppCredentials, sessionID string) (*appState, error) {
	app, ok := b.apps[creds.Name]
	if !ok || !equal(app.OwnerID, creds.OwnerID) {
		return nil, apperrors.NewRejected(op, MsgInvalidApp)
	}
	if app.Paused {
		return nil, apperrors.NewRejected(op, MsgAppPaused)
	}

	s, ok := b.sessions[sessionID]
	if !ok || s.app != app.Name {
		return nil, apperrors.NewRejected(op, MsgInvalidSession)
	}
	if !b.now().Before(s.expires) {
		delete(b.sessions, sessionID)
		return nil, apperrors.NewRejected(op, MsgInvalidSession)
	}
	return app, nil
}

// checkAccount binds an unbound account to hwid and rejects other machines
func (b *Backend) checkAccount(op string, acct *account, hwid string) error {
	if acct.hwid == "" {
		acct.hwid = hwid
	} else if acct.hwid != hwid {
		return apperrors.NewRejected(op, MsgHWIDMismatch)
	}

	if len(acct.subscriptions) == 0 {
		return nil
	}
	now := b.now()
	for _, sub := range acct.subscriptions {
		if !sub.Expired(now) {
			return nil
		}
	}
	return apperrors.NewRejected(op, MsgSubscriptionExpired)
}

func (b *Backend) grant(lic *licenseKey) domain.Subscription {
	expiry := b.now().AddDate(0, 0, lic.days)
	return domain.Subscription{Name: lic.subscription, Expiry: expiry.Format(ExpiryLayout)}
}

func unusedLicense(op string, app *appState, key string) (*licenseKey, error) {
	lic, ok := app.licenses[key]
	if !ok {
		return nil, apperrors.NewRejected(op, MsgInvalidLicense)
	}
	if lic.usedBy != "" {
		return nil, apperrors.NewRejected(op, MsgLicenseUsed)
	}
	return lic, nil
}

func userInfo(username string, acct *account, ip string) *domain.UserInfo {
	return &domain.UserInfo{
		Username:      username,
		HWID:          acct.hwid,
		IP:            ip,
		Subscriptions: append([]domain.Subscription(nil), acct.subscriptions...),
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
