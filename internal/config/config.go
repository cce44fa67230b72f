// ABOUTME: Configuration loading and parsing for shopy
// ABOUTME: Supports YAML files with environment variable expansion and SHOPY_ env overrides

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete shopy configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Media    MediaConfig    `yaml:"media"`
	Gate     GateConfig     `yaml:"gate"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" env:"SHOPY_HTTP_ADDR"`
	// BaseURL is the external URL of the app (used for WebAuthn relying
	// party config and links in outbound messages)
	BaseURL string `yaml:"base_url" env:"SHOPY_BASE_URL"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" env:"SHOPY_DB_PATH"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"SHOPY_JWT_SECRET"`

	SessionTTL    time.Duration `yaml:"-"`
	OTPTTL        time.Duration `yaml:"-"`
	ResetTokenTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SessionTTLRaw    string `yaml:"session_ttl"`
	OTPTTLRaw        string `yaml:"otp_ttl"`
	ResetTokenTTLRaw string `yaml:"reset_token_ttl"`
}

// MediaConfig holds product image upload configuration
type MediaConfig struct {
	Dir            string `yaml:"dir" env:"SHOPY_MEDIA_DIR"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// GateConfig holds onboarding gate configuration
type GateConfig struct {
	LookupTimeout time.Duration `yaml:"-"`

	LookupTimeoutRaw string `yaml:"lookup_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"SHOPY_LOG_LEVEL"`
	Format string `yaml:"format" env:"SHOPY_LOG_FORMAT"`
}

// Defaults applied when the config file omits a value.
const (
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultOTPTTL         = 5 * time.Minute
	DefaultResetTokenTTL  = 30 * time.Minute
	DefaultLookupTimeout  = 5 * time.Second
	DefaultMaxUploadBytes = 5 << 20 // 5 MiB
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded, and SHOPY_*
// environment variables override individual fields after parsing.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// SHOPY_* environment variables win over file values
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	if c.Media.Dir == "" {
		return fmt.Errorf("media.dir is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	if cfg.Auth.OTPTTLRaw != "" {
		cfg.Auth.OTPTTL, err = time.ParseDuration(cfg.Auth.OTPTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing otp_ttl %q: %w", cfg.Auth.OTPTTLRaw, err)
		}
	}

	if cfg.Auth.ResetTokenTTLRaw != "" {
		cfg.Auth.ResetTokenTTL, err = time.ParseDuration(cfg.Auth.ResetTokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing reset_token_ttl %q: %w", cfg.Auth.ResetTokenTTLRaw, err)
		}
	}

	if cfg.Gate.LookupTimeoutRaw != "" {
		cfg.Gate.LookupTimeout, err = time.ParseDuration(cfg.Gate.LookupTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing lookup_timeout %q: %w", cfg.Gate.LookupTimeoutRaw, err)
		}
	}

	return nil
}

// applyDefaults fills zero-valued optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = DefaultSessionTTL
	}
	if cfg.Auth.OTPTTL == 0 {
		cfg.Auth.OTPTTL = DefaultOTPTTL
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = DefaultResetTokenTTL
	}
	if cfg.Gate.LookupTimeout == 0 {
		cfg.Gate.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.Media.MaxUploadBytes == 0 {
		cfg.Media.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
