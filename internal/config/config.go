package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultSessionTimeoutHours is the absolute session lifetime used when none is configured
	DefaultSessionTimeoutHours = 24.0
	// DefaultAlgorithm is the signing algorithm used when none is configured
	DefaultAlgorithm = "HS256"
	// DefaultPort is the HTTP port used when none is configured
	DefaultPort = 8080
	// DefaultMetricsPath is the path the Prometheus handler is mounted on
	DefaultMetricsPath = "/metrics"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// OutcomeQueueSize bounds the verification outcomes waiting for Redis or
	// the audit log; 0 uses the dispatcher default
	OutcomeQueueSize int `yaml:"outcome_queue_size"`
}

// AuthConfig holds signing key configuration.
// CurrentSecret and PreviousSecret are never read from YAML; they come from the environment.
type AuthConfig struct {
	Algorithm     string `yaml:"algorithm"`
	KeysPath      string `yaml:"keys_path"`
	CurrentKID    string `yaml:"current_kid"`
	PreviousKID   string `yaml:"previous_kid"`
	LeewaySeconds int    `yaml:"leeway_seconds"`

	CurrentSecret  string `yaml:"-"`
	PreviousSecret string `yaml:"-"`
}

// Leeway returns the tolerated clock skew for exp/nbf/iat checks
func (a *AuthConfig) Leeway() time.Duration {
	return time.Duration(a.LeewaySeconds) * time.Second
}

// SessionConfig holds the absolute session lifetime policy
type SessionConfig struct {
	TimeoutHours     float64            `yaml:"timeout_hours"`
	TypeTimeoutHours map[string]float64 `yaml:"type_timeout_hours"`
}

// MaxDuration converts TimeoutHours into a duration
func (s *SessionConfig) MaxDuration() time.Duration {
	return HoursToDuration(s.TimeoutHours)
}

// MaxTimeoutHours is the largest hour count HoursToDuration can represent
const MaxTimeoutHours = float64(math.MaxInt64) / float64(time.Hour)

// ValidHours reports whether hours is a finite, positive value that fits in a time.Duration
func ValidHours(hours float64) error {
	switch {
	case math.IsNaN(hours) || math.IsInf(hours, 0):
		return fmt.Errorf("must be a finite number, got %v", hours)
	case hours <= 0:
		return fmt.Errorf("must be positive, got %v", hours)
	case hours*float64(time.Hour) >= float64(math.MaxInt64):
		return fmt.Errorf("must be below %.0f, got %v", MaxTimeoutHours, hours)
	}
	return nil
}

// HoursToDuration converts fractional hours (0.01 = 36s) into a duration
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsConfig holds metrics-specific configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditConfig controls persistence of delegated-credential audit records
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays values taken from the process environment
func (c *Config) ApplyEnv(env *Environment) {
	if env == nil {
		return
	}
	if env.SessionTimeoutHours > 0 {
		c.Session.TimeoutHours = env.SessionTimeoutHours
	}
	if env.JWTSecret != "" {
		c.Auth.CurrentSecret = env.JWTSecret
	}
	if env.JWTSecretPrevious != "" {
		c.Auth.PreviousSecret = env.JWTSecretPrevious
	}
}

// ApplyDefaults fills zero values that have a sensible default
func (c *Config) ApplyDefaults() {
	if c.Session.TimeoutHours == 0 {
		c.Session.TimeoutHours = DefaultSessionTimeoutHours
	}
	if c.Auth.Algorithm == "" {
		c.Auth.Algorithm = DefaultAlgorithm
	}
	c.Auth.Algorithm = strings.ToUpper(c.Auth.Algorithm)
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

// Validate reports configuration that cannot produce a working verifier
func (c *Config) Validate() error {
	var errs []error

	if err := ValidHours(c.Session.TimeoutHours); err != nil {
		errs = append(errs, fmt.Errorf("session.timeout_hours %w", err))
	}
	for name, hours := range c.Session.TypeTimeoutHours {
		if err := ValidHours(hours); err != nil {
			errs = append(errs, fmt.Errorf("session.type_timeout_hours.%s %w", name, err))
		}
	}

	switch c.Auth.Algorithm {
	case "HS256", "RS256":
	default:
		errs = append(errs, fmt.Errorf("auth.algorithm %q is not supported", c.Auth.Algorithm))
	}

	if c.Auth.CurrentKID == "" {
		errs = append(errs, errors.New("auth.current_kid is required"))
	}
	if c.Auth.PreviousKID != "" && c.Auth.PreviousKID == c.Auth.CurrentKID {
		errs = append(errs, errors.New("auth.previous_kid must differ from auth.current_kid"))
	}
	if c.Auth.LeewaySeconds < 0 {
		errs = append(errs, errors.New("auth.leeway_seconds must not be negative"))
	}
	if c.Server.OutcomeQueueSize < 0 {
		errs = append(errs, errors.New("server.outcome_queue_size must not be negative"))
	}

	return errors.Join(errs...)
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := value == ""
	for _, r := range value {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format
func (d *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}

// Configured reports whether enough database settings are present to connect
func (d *DatabaseConfig) Configured() bool {
	return d.Host != "" && d.DBName != ""
}
