// Package config provides configuration management for the enrollment
// statistics service. It supports environment variable-based configuration
// with validation and default values for the HTTP server, upstream portal,
// cache, security, and logging settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// MinPortNumber is the minimum valid port number.
	MinPortNumber = 1
	// MaxPortNumber is the maximum valid port number.
	MaxPortNumber = 65535
)

// Config represents the complete configuration for the service,
// aggregating all component-specific configurations.
type Config struct {
	// Server contains HTTP server configuration including ports and timeouts.
	Server ServerConfig `envconfig:"SERVER"`
	// Portal contains upstream portal connection and credential settings.
	Portal PortalConfig `envconfig:"CEPREUNA"`
	// Cache contains statistics cache settings.
	Cache CacheConfig `envconfig:"CACHE"`
	// Security contains CORS settings.
	Security SecurityConfig `envconfig:"SECURITY"`
	// Logging contains logging configuration.
	Logging LoggingConfig `envconfig:"LOGGING"`
}

// ServerConfig holds HTTP server configuration including network settings
// and timeouts.
type ServerConfig struct {
	// Port is the HTTP server listening port.
	Port int `envconfig:"PORT"             default:"8000"`
	// Host is the network interface to bind to.
	Host string `envconfig:"HOST"             default:"0.0.0.0"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT"     default:"15s"`
	// WriteTimeout is the maximum duration before timing out writes.
	// List fetches against the portal can take close to a minute, so the
	// write timeout has to outlast the list-fetch timeout plus retries.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT"    default:"210s"`
	// IdleTimeout is the maximum amount of time to wait for keep-alive connections.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT"     default:"60s"`
	// ShutdownTimeout is the maximum time to wait for graceful server shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// PortalConfig contains the upstream portal endpoints, the standing
// credential pair, and the timing parameters of the session and retry
// machinery.
type PortalConfig struct {
	// Email is the portal account email (CEPREUNA_EMAIL).
	Email string `envconfig:"EMAIL"`
	// Password is the portal account password (CEPREUNA_PASSWORD).
	Password string `envconfig:"PASSWORD"`
	// BaseURL is the portal root.
	BaseURL string `envconfig:"BASE_URL"        default:"https://sistemas.cepreuna.edu.pe"`
	// SessionDuration is the maximum session age before forced re-login.
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"1800s"`
	// LoginTimeout is the network timeout for login and token calls.
	LoginTimeout time.Duration `envconfig:"LOGIN_TIMEOUT"   default:"30s"`
	// ListTimeout is the network timeout for list fetches.
	ListTimeout time.Duration `envconfig:"LIST_TIMEOUT"    default:"60s"`
	// RetryAttempts is the fetch retry budget.
	RetryAttempts int `envconfig:"RETRY_ATTEMPTS"  default:"3"`
	// RetryBackoff is the wait between retry attempts.
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF"   default:"2s"`
	// StudentListLimit is the page size requested from the student list.
	StudentListLimit int `envconfig:"STUDENT_LIST_LIMIT" default:"10000"`
	// SeatListLimit is the page size requested from the seat list.
	SeatListLimit int `envconfig:"SEAT_LIST_LIMIT"    default:"100"`
}

// CacheConfig contains statistics cache settings.
type CacheConfig struct {
	// Duration is the freshness window for cached statistics.
	Duration time.Duration `envconfig:"DURATION" default:"300s"`
}

// SecurityConfig contains CORS configuration for the dashboard frontend.
type SecurityConfig struct {
	// AllowedOrigins are the CORS allowed origins.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"   default:"*"`
	// AllowedMethods are the CORS allowed HTTP methods.
	AllowedMethods []string `envconfig:"ALLOWED_METHODS"   default:"GET,POST,DELETE,OPTIONS"`
	// AllowedHeaders are the CORS allowed headers.
	AllowedHeaders []string `envconfig:"ALLOWED_HEADERS"   default:"*"`
	// AllowCredentials determines if CORS allows credentials.
	AllowCredentials bool `envconfig:"ALLOW_CREDENTIALS" default:"true"`
	// MaxAge is the CORS preflight cache duration in seconds.
	MaxAge int `envconfig:"MAX_AGE"           default:"86400"`
}

// LoggingConfig contains logging configuration including
// log level, format, and output destination.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `envconfig:"LEVEL"  default:"info"`
	// Format is the log output format (json, text).
	Format string `envconfig:"FORMAT" default:"json"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `envconfig:"OUTPUT" default:"stdout"`
}

// Load reads configuration from environment variables and returns
// a validated Config instance. It returns an error if configuration
// is invalid or required values are missing.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate performs validation of all configuration values,
// ensuring they meet operational requirements.
func (c *Config) Validate() error {
	if c.Server.Port < MinPortNumber || c.Server.Port > MaxPortNumber {
		return errors.New("server port must be between 1 and 65535")
	}

	if c.Portal.BaseURL == "" {
		return errors.New("portal base URL is required")
	}

	if strings.HasSuffix(c.Portal.BaseURL, "/") {
		c.Portal.BaseURL = strings.TrimRight(c.Portal.BaseURL, "/")
	}

	if c.Portal.RetryAttempts < 1 {
		return errors.New("retry attempts must be at least 1")
	}

	if c.Portal.SessionDuration < time.Minute {
		return errors.New("session duration must be at least 1 minute")
	}

	if c.Cache.Duration < time.Second {
		return errors.New("cache duration must be at least 1 second")
	}

	return nil
}

// ServerAddr returns the formatted server address string in host:port format.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HasCredentials returns true if both portal email and password are configured.
func (c *Config) HasCredentials() bool {
	return c.Portal.Email != "" && c.Portal.Password != ""
}

// LoginURL returns the portal login page URL.
func (c *PortalConfig) LoginURL() string {
	return c.BaseURL + "/login"
}

// StudentListURL returns the enrolled-student list endpoint.
func (c *PortalConfig) StudentListURL() string {
	return c.BaseURL + "/intranet/inscripcion/estudiante/lista/data"
}

// StudentListReferer returns the Referer presented on student list fetches.
func (c *PortalConfig) StudentListReferer() string {
	return c.BaseURL + "/intranet/inscripcion/estudiante/lista"
}

// SeatListURL returns the available-seat list endpoint.
func (c *PortalConfig) SeatListURL() string {
	return c.BaseURL + "/intranet/administracion/vacantes/lista/data"
}

// SeatListReferer returns the Referer presented on seat list fetches.
func (c *PortalConfig) SeatListReferer() string {
	return c.BaseURL + "/intranet/administracion/vacantes/lista"
}

// EncryptURL returns the per-record token endpoint for the given record ID.
func (c *PortalConfig) EncryptURL(recordID string) string {
	return c.BaseURL + "/intranet/encrypt/" + recordID
}

// DownloadURL composes the enrollment-sheet download URL for a resolved token.
func (c *PortalConfig) DownloadURL(token string) string {
	return c.BaseURL + "/inscripciones/estudiantes/" + token
}
