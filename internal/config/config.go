package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Signing  SigningConfig
	Card     CardConfig
	Scanner  ScannerConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SigningConfig holds the verification token signing configuration.
// The secret is loaded once at startup and never mutated at runtime; key
// rotation happens via redeploy with a new KeyID.
type SigningConfig struct {
	Secret   string
	KeyID    string
	Issuer   string
	TokenTTL time.Duration
}

// CardConfig holds card number generation configuration
type CardConfig struct {
	// SchemePrefix is the single constant digit leading every card number
	SchemePrefix string
	// MaxAttempts caps the uniqueness retry loop
	MaxAttempts int
}

// ScannerConfig holds scanner endpoint authentication and rate limiting
type ScannerConfig struct {
	// APIKeyHash is the bcrypt hash of the shared scanner API key
	APIKeyHash string
	// ScanLimit is the max scans per scanner per window
	ScanLimit int
	// ScanWindow is the rate limit window
	ScanWindow time.Duration
}

// RedisConfig holds the optional redis connection used by the replay guard.
// An empty Addr disables the guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "membercard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Signing: SigningConfig{
			Secret:   getEnv("TOKEN_SIGNING_SECRET", ""),
			KeyID:    getEnv("TOKEN_SIGNING_KEY_ID", ""),
			Issuer:   getEnv("TOKEN_ISSUER", "membercard"),
			TokenTTL: getDurationEnv("TOKEN_TTL_MINUTES", 5*time.Minute),
		},
		Card: CardConfig{
			SchemePrefix: getEnv("CARD_SCHEME_PREFIX", "2"),
			MaxAttempts:  getIntEnv("CARD_MAX_ATTEMPTS", 10),
		},
		Scanner: ScannerConfig{
			APIKeyHash: getEnv("SCANNER_API_KEY_HASH", ""),
			ScanLimit:  getIntEnv("SCANNER_SCAN_LIMIT", 120),
			ScanWindow: getDurationEnv("SCANNER_SCAN_WINDOW_MINUTES", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
	}
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// URL returns the PostgreSQL connection URL for sqlx/migrate
func (d *DatabaseConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns an integer from environment variable or default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getDurationEnv returns duration in minutes from environment variable or default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
