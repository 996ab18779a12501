package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Client    ClientConfig    `yaml:"client" envconfig:"CLIENT"`
	Transport TransportConfig `yaml:"transport" envconfig:"TRANSPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Stub      StubConfig      `yaml:"stub" envconfig:"STUB"`
}

// ClientConfig holds the static application credentials issued by the vendor.
// It is supplied once when the client is constructed and never mutated.
type ClientConfig struct {
	Name    string `yaml:"name" envconfig:"NAME" validate:"required"`
	OwnerID string `yaml:"owner_id" envconfig:"OWNER_ID" validate:"required"`
	Secret  string `yaml:"secret" envconfig:"SECRET" validate:"required"`
	Version string `yaml:"version" envconfig:"VERSION" validate:"required"`
}

// TransportConfig configures the HTTP request transport
type TransportConfig struct {
	Endpoint         string        `yaml:"endpoint" envconfig:"ENDPOINT" validate:"required,url"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	UserAgent        string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	MaxResponseBytes int64         `yaml:"max_response_bytes" envconfig:"MAX_RESPONSE_BYTES" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_if=Output file,required_if=Output both"`
}

// TelemetryConfig controls the OpenTelemetry providers
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"omitempty,oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// StubConfig configures the local stub backend
type StubConfig struct {
	Addr       string          `yaml:"addr" envconfig:"ADDR" validate:"required"`
	SeedFile   string          `yaml:"seed_file" envconfig:"SEED_FILE"`
	SessionTTL time.Duration   `yaml:"session_ttl" envconfig:"SESSION_TTL" validate:"gt=0"`
	RateLimit  RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

var validate = validator.New()

// Load builds the configuration from defaults, an optional YAML file and
// AUTHSECURE_* environment variables, in increasing order of precedence.
// An empty path probes the default file locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML settings onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks everything except the client credentials, which only the
// client side needs; see ValidateClient.
func (c *Config) Validate() error {
	if err := validate.StructExcept(c, "Client"); err != nil {
		return err
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
	if c.Transport.UserAgent == "" {
		c.Transport.UserAgent = DefaultUserAgent
	}
	if c.Telemetry.TraceExporter == "" {
		c.Telemetry.TraceExporter = "none"
	}

	return nil
}

// ValidateClient checks that all application credentials are present
func (c *Config) ValidateClient() error {
	return c.Client.Validate()
}

// Validate checks that all application credentials are present
func (c ClientConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	return nil
}

// getConfigFilePath returns the first existing default config file
func getConfigFilePath() string {
	for _, location := range configFileLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Endpoint:         DefaultEndpoint,
			Timeout:          DefaultHTTPTimeout,
			UserAgent:        DefaultUserAgent,
			MaxResponseBytes: DefaultMaxResponseBytes,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFilePath,
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			EnableMetrics: true,
			TraceExporter: "none",
			SampleRatio:   1.0,
			Environment:   "development",
		},
		Stub: StubConfig{
			Addr:       DefaultStubAddr,
			SessionTTL: DefaultStubSessionTTL,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultStubRateLimit,
				Burst:   DefaultStubBurstSize,
			},
		},
	}
}
