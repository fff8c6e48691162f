package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// developmentSigningSecret is only ever returned when the environment is
	// explicitly development.
	developmentSigningSecret = "dev-only-insecure-assertion-secret-change-me"

	minSecretLength = 32
)

// ErrMissingSigningSecret is fatal at startup in production.
var ErrMissingSigningSecret = errors.New("config: assertion signing secret is required in production")

// ConfigError is returned when the configuration cannot be used to start a process.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

type Config struct {
	Environment   string              `mapstructure:"environment" validate:"omitempty,oneof=production development"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// GatewayConfig configures the browser-facing BFF.
type GatewayConfig struct {
	Port       int    `mapstructure:"port" validate:"min=0,max=65535"`
	PublicURL  string `mapstructure:"public_url"`
	BackendURL string `mapstructure:"backend_url"`
	// AuthRateLimit is the number of /auth requests allowed per IP per minute.
	AuthRateLimit int `mapstructure:"auth_rate_limit" validate:"min=0"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type SecurityConfig struct {
	// AssertionSecret signs the identity assertions forwarded to the backend.
	AssertionSecret string `mapstructure:"assertion_secret"`
	// SessionSecret signs the browser session cookie.
	SessionSecret      string        `mapstructure:"session_secret"`
	SessionDuration    time.Duration `mapstructure:"session_duration"`
	AssertionMaxAge    time.Duration `mapstructure:"assertion_max_age"`
	AssertionClockSkew time.Duration `mapstructure:"assertion_clock_skew"`
}

type DiscordConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	APIBaseURL   string        `mapstructure:"api_base_url" validate:"omitempty,url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type ReconcileConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"min=0,max=64"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// IsProduction reports whether strict production rules apply.
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == EnvProduction
}

// ApplyDefaults fills unset values. An unset environment is production:
// development relaxations must be asked for by name.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 3000
	}
	if c.Gateway.BackendURL == "" {
		c.Gateway.BackendURL = "http://localhost:8080"
	}
	if c.Gateway.AuthRateLimit == 0 {
		c.Gateway.AuthRateLimit = 30
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Security.SessionDuration == 0 {
		c.Security.SessionDuration = 7 * 24 * time.Hour
	}
	if c.Security.AssertionMaxAge == 0 {
		c.Security.AssertionMaxAge = 5 * time.Minute
	}
	if c.Security.AssertionClockSkew == 0 {
		c.Security.AssertionClockSkew = 30 * time.Second
	}
	if c.Discord.APIBaseURL == "" {
		c.Discord.APIBaseURL = "https://discord.com/api/v10"
	}
	if c.Discord.FetchTimeout == 0 {
		c.Discord.FetchTimeout = 10 * time.Second
	}
	if c.Reconcile.Concurrency == 0 {
		c.Reconcile.Concurrency = 4
	}
	if c.Reconcile.Timeout == 0 {
		c.Reconcile.Timeout = 30 * time.Second
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// ----------------- HELPERS -----------------

// LoadConfigFromEnv builds the configuration from environment variables
// (container deployments).
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Environment: getEnv("APP_ENV", EnvProduction),
		Server: ServerConfig{
			Port:         getEnvAsInt("HTTP_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Gateway: GatewayConfig{
			Port:          getEnvAsInt("GATEWAY_PORT", 3000),
			PublicURL:     getEnv("GATEWAY_PUBLIC_URL", ""),
			BackendURL:    getEnv("GATEWAY_BACKEND_URL", ""),
			AuthRateLimit: getEnvAsInt("GATEWAY_AUTH_RATE_LIMIT", 30),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			AssertionSecret:    getEnv("ASSERTION_SECRET", ""),
			SessionSecret:      getEnv("SESSION_SECRET", ""),
			SessionDuration:    getEnvAsDuration("SESSION_DURATION", 0),
			AssertionMaxAge:    getEnvAsDuration("ASSERTION_MAX_AGE", 0),
			AssertionClockSkew: getEnvAsDuration("ASSERTION_CLOCK_SKEW", 0),
		},
		Discord: DiscordConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DISCORD_REDIRECT_URL", ""),
			APIBaseURL:   getEnv("DISCORD_API_BASE_URL", ""),
			FetchTimeout: getEnvAsDuration("DISCORD_FETCH_TIMEOUT", 0),
		},
		Reconcile: ReconcileConfig{
			Concurrency: getEnvAsInt("RECONCILE_CONCURRENCY", 0),
			Timeout:     getEnvAsDuration("RECONCILE_TIMEOUT", 0),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var structValidator = validator.New()

func (c *Config) Validate() error {
	var errs []string

	if err := structValidator.Struct(c); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(c.Environment); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return &ConfigError{Problems: errs}
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

// Validate enforces the secret rules. In production both secrets are
// mandatory and must be long enough; in development missing secrets fall back
// to placeholders (see SigningSecret).
func (c *SecurityConfig) Validate(env string) error {
	if env != EnvProduction {
		return nil
	}
	if c.AssertionSecret == "" {
		return ErrMissingSigningSecret
	}
	if len(c.AssertionSecret) < minSecretLength {
		return fmt.Errorf("assertion secret must be at least %d characters", minSecretLength)
	}
	if c.AssertionSecret == developmentSigningSecret {
		return errors.New("assertion secret must not be the development placeholder")
	}
	if len(c.SessionSecret) < minSecretLength {
		return fmt.Errorf("session secret must be at least %d characters", minSecretLength)
	}
	return nil
}

// SigningSecret returns the assertion signing key. It never falls back outside
// of an explicit development environment.
func (c *SecurityConfig) SigningSecret(env string, logger *slog.Logger) ([]byte, error) {
	if c.AssertionSecret != "" {
		return []byte(c.AssertionSecret), nil
	}
	if env != EnvDevelopment {
		return nil, ErrMissingSigningSecret
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("!!! ASSERTION SECRET NOT CONFIGURED: using the insecure development placeholder. " +
		"Any party knowing it can forge backend identities. Never run this in production. !!!")
	return []byte(developmentSigningSecret), nil
}

// SessionKey returns the session cookie signing key with the same fallback
// rule as SigningSecret.
func (c *SecurityConfig) SessionKey(env string, logger *slog.Logger) ([]byte, error) {
	if c.SessionSecret != "" {
		return []byte(c.SessionSecret), nil
	}
	if env != EnvDevelopment {
		return nil, errors.New("config: session secret is required outside development")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("session secret not configured: using development placeholder")
	return []byte(developmentSigningSecret + "-session"), nil
}
