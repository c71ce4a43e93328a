package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/database"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/downloadtoken"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/statement"
)

// Supported caller token formats.
const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Download  DownloadConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
	PublicBaseURL   string   // prefix for download URLs; request host when empty
}

type DatabaseConfig struct {
	Driver         string // postgres or sqlite
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	SQLitePath     string
}

// RedisConfig is optional: with no host the rate limiter is disabled.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type AuthConfig struct {
	TokenFormat   string // jwt or paseto
	JWTSigningKey []byte
	JWTIssuer     string
	JWTAudience   string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey []byte
}

type DownloadConfig struct {
	Secret      []byte
	MaxLifetime time.Duration
	ClockSkew   time.Duration
}

type StorageConfig struct {
	DataDir         string
	CaseInsensitive bool
}

// Load reads configuration from environment variables
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		},
		Database: DatabaseConfig{
			Driver:         strings.ToLower(getEnv("DB_DRIVER", database.DriverPostgres)),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "statements"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			SQLitePath:     getEnv("SQLITE_PATH", "statements.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Auth: AuthConfig{
			TokenFormat:   strings.ToLower(getEnv("AUTH_TOKEN_FORMAT", TokenFormatJWT)),
			JWTSigningKey: []byte(getEnv("JWT_SIGNING_KEY", "")),
			JWTIssuer:     getEnv("JWT_ISSUER", "statement-delivery-dev"),
			JWTAudience:   getEnv("JWT_AUDIENCE", "statement-delivery-api"),
			PasetoKey:     []byte(getEnv("PASETO_KEY", "")),
		},
		Download: DownloadConfig{
			Secret:      downloadtoken.ParseSecret(getEnv("DOWNLOAD_TOKEN_SECRET", "")),
			MaxLifetime: getDurationEnv("DOWNLOAD_TOKEN_MAX_LIFETIME", downloadtoken.DefaultMaxLifetime),
			ClockSkew:   getDurationEnv("DOWNLOAD_TOKEN_CLOCK_SKEW", downloadtoken.DefaultClockSkew),
		},
		Storage: StorageConfig{
			DataDir:         getEnv("DATA_DIR", "./data/statements"),
			CaseInsensitive: getBoolEnv("STORAGE_CASE_INSENSITIVE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every setting the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := database.SQLDriverName(c.Database.Driver); err != nil {
		errs = append(errs, fmt.Errorf("DB_DRIVER: %w", err))
	}

	switch c.Auth.TokenFormat {
	case TokenFormatJWT:
		if len(c.Auth.JWTSigningKey) < 32 {
			errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.Auth.JWTSigningKey)))
		}
		if c.Auth.JWTIssuer == "" || c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_ISSUER and JWT_AUDIENCE are required"))
		}
	case TokenFormatPaseto:
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			errs = append(errs, fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey)))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_FORMAT must be %q or %q, got %q", TokenFormatJWT, TokenFormatPaseto, c.Auth.TokenFormat))
	}

	if len(c.Download.Secret) < downloadtoken.MinKeyLength {
		errs = append(errs, fmt.Errorf("DOWNLOAD_TOKEN_SECRET must be at least %d bytes, got %d", downloadtoken.MinKeyLength, len(c.Download.Secret)))
	}
	if c.Download.MaxLifetime < statement.LinkTTL {
		errs = append(errs, fmt.Errorf("DOWNLOAD_TOKEN_MAX_LIFETIME must be at least %s, got %s", statement.LinkTTL, c.Download.MaxLifetime))
	}
	if c.Download.ClockSkew < 0 {
		errs = append(errs, errors.New("DOWNLOAD_TOKEN_CLOCK_SKEW must not be negative"))
	}

	if strings.TrimSpace(c.Storage.DataDir) == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == database.DriverSQLite {
		return c.SQLitePath
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getDurationEnv accepts Go duration strings ("5m") or whole seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
