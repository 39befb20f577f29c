package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Gateway  GatewayConfig
	WhatsApp WhatsAppConfig
	Seed     SeedConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds storage configuration. URL selects the backend:
// a postgres:// URL uses the networked store, anything else is treated
// as a SQLite file path.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds admin authentication configuration.
type AuthConfig struct {
	AdminToken string
}

// CORSConfig holds the browser origin allow-list.
type CORSConfig struct {
	Origins []string
}

// GatewayConfig holds the Mercado Pago credentials and redirect targets.
type GatewayConfig struct {
	AccessToken     string
	BaseURL         string
	IntegratorID    string
	TimeoutSeconds  int
	FrontendOrigin  string
	NotificationURL string
}

// WhatsAppConfig holds the WhatsApp Cloud API notification settings.
// Leaving any field empty disables the sink.
type WhatsAppConfig struct {
	PhoneNumberID string
	AccessToken   string
	To            string
}

// SeedConfig holds the catalog seed source for cmd/seed. When S3 is
// enabled the Source is interpreted as an object key, otherwise as a
// local file path.
type SeedConfig struct {
	Source    string
	S3Enabled bool
	S3Bucket  string
	S3Region  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8787),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "data/cdm.db"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			AdminToken: getEnv("ADMIN_TOKEN", ""),
		},
		CORS: CORSConfig{
			Origins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Gateway: GatewayConfig{
			AccessToken:     getEnv("MP_ACCESS_TOKEN", ""),
			BaseURL:         getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			IntegratorID:    getEnv("MP_INTEGRATOR_ID", ""),
			TimeoutSeconds:  getEnvAsInt("MP_TIMEOUT_SECONDS", 10),
			FrontendOrigin:  strings.TrimRight(getEnv("FRONTEND_ORIGIN", "http://localhost:5173"), "/"),
			NotificationURL: getEnv("MP_WEBHOOK_URL", ""),
		},
		WhatsApp: WhatsAppConfig{
			PhoneNumberID: getEnv("WA_PHONE_NUMBER_ID", ""),
			AccessToken:   getEnv("WA_ACCESS_TOKEN", ""),
			To:            getEnv("WA_TO", ""),
		},
		Seed: SeedConfig{
			Source:    getEnv("SEED_SOURCE", "data/products.json"),
			S3Enabled: getEnvAsBool("SEED_S3_ENABLED", false),
			S3Bucket:  getEnv("SEED_S3_BUCKET", ""),
			S3Region:  getEnv("SEED_S3_REGION", "us-east-1"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.AdminToken == "" {
		return fmt.Errorf("admin token is required")
	}

	if c.Gateway.TimeoutSeconds < 1 {
		return fmt.Errorf("gateway timeout must be at least 1 second")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Seed.S3Enabled && c.Seed.S3Bucket == "" {
		return fmt.Errorf("seed S3 bucket is required when S3 is enabled")
	}

	return nil
}

// IsPostgres reports whether the configured URL points at a networked
// Postgres store rather than an embedded SQLite file.
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimRight(p, "/"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
