package stubserver

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"authsecure/pkg/contracts/domain"
)

// Seed is the initial backend state, usually loaded from YAML
type Seed struct {
	Apps     []AppSeed     `yaml:"apps" validate:"required,min=1,dive"`
	Users    []UserSeed    `yaml:"users" validate:"dive"`
	Licenses []LicenseSeed `yaml:"licenses" validate:"dive"`
}

// AppSeed registers an application
type AppSeed struct {
	Name    string `yaml:"name" validate:"required"`
	OwnerID string `yaml:"owner_id" validate:"required"`
	Secret  string `yaml:"secret" validate:"required"`
	Version string `yaml:"version" validate:"required"`
	Paused  bool   `yaml:"paused"`
}

// UserSeed creates an account. Password is hashed on load; PasswordHash takes
// a ready bcrypt hash instead.
type UserSeed struct {
	App           string                `yaml:"app" validate:"required"`
	Username      string                `yaml:"username" validate:"required"`
	Password      string                `yaml:"password" validate:"required_without=PasswordHash"`
	PasswordHash  string                `yaml:"password_hash"`
	HWID          string                `yaml:"hwid"`
	Subscriptions []domain.Subscription `yaml:"subscriptions"`
}

// LicenseSeed creates a redeemable key granting one subscription for Days
type LicenseSeed struct {
	App          string `yaml:"app" validate:"required"`
	Key          string `yaml:"key" validate:"required"`
	Subscription string `yaml:"subscription" validate:"required"`
	Days         int    `yaml:"days" validate:"gt=0"`
}

// LoadSeed reads and validates a YAML seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks required fields and cross references
func (s *Seed) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	apps := make(map[string]bool, len(s.Apps))
	for _, a := range s.Apps {
		if apps[a.Name] {
			return fmt.Errorf("invalid seed: duplicate app %q", a.Name)
		}
		apps[a.Name] = true
	}
	for _, u := range s.Users {
		if !apps[u.App] {
			return fmt.Errorf("invalid seed: user %q references unknown app %q", u.Username, u.App)
		}
	}
	for _, l := range s.Licenses {
		if !apps[l.App] {
			return fmt.Errorf("invalid seed: license references unknown app %q", l.App)
		}
	}
	return nil
}

// DefaultSeed is the demo state served when no seed file is configured
func DefaultSeed() *Seed {
	return &Seed{
		Apps: []AppSeed{
			{Name: "demo-app", OwnerID: "demo-owner", Secret: "demo-secret", Version: "1.0"},
		},
		Users: []UserSeed{
			{
				App:      "demo-app",
				Username: "demo",
				Password: "demo-password",
				Subscriptions: []domain.Subscription{
					{Name: "default", Expiry: "2099-12-31"},
				},
			},
		},
		Licenses: []LicenseSeed{
			{App: "demo-app", Key: "DEMO-AAAA-BBBB-CCCC", Subscription: "default", Days: 30},
			{App: "demo-app", Key: "DEMO-DDDD-EEEE-FFFF", Subscription: "premium", Days: 365},
		},
	}
}
