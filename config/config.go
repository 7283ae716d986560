package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GenerateAPIKey generates a secure random API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Config holds all configuration for the drive client and its local bridge
type Config struct {
	// Remote drive
	DriveAPIURL   string
	SessionCookie string
	SessionToken  string
	DriveTimeout  time.Duration
	ReadRetries   int

	// Browsing
	RootLabel            string
	Locale               string
	UsageCacheTTL        time.Duration
	ThumbnailConcurrency int
	ThumbnailMaxBytes    int64

	// Bridge server settings
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Bridge authentication
	APIKey    string
	JWTSecret string

	// Security
	AllowedOrigins []string
	RateLimitRPS   int

	// Logging
	LogLevel string

	// Setup mode
	SetupMode bool
	EnvFile   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFrom(getEnvFile())
}

// LoadFrom loads the given .env file (if present) and then the environment
func LoadFrom(envFile string) (*Config, error) {
	// Missing .env files are fine; the environment may carry everything
	_ = godotenv.Load(envFile)

	cfg := &Config{
		DriveAPIURL:          strings.TrimSuffix(getEnv("DRIVE_API_URL", ""), "/"),
		SessionCookie:        getEnv("DRIVE_SESSION_COOKIE", "session"),
		SessionToken:         getEnv("DRIVE_SESSION_TOKEN", ""),
		DriveTimeout:         time.Duration(getEnvInt("DRIVE_TIMEOUT_SECONDS", 30)) * time.Second,
		ReadRetries:          getEnvInt("DRIVE_READ_RETRIES", 0),
		RootLabel:            getEnv("DRIVE_ROOT_LABEL", "My Drive"),
		Locale:               getEnv("DRIVE_LOCALE", "en"),
		UsageCacheTTL:        time.Duration(getEnvInt("USAGE_CACHE_SECONDS", 30)) * time.Second,
		ThumbnailConcurrency: getEnvInt("THUMBNAIL_CONCURRENCY", 4),
		ThumbnailMaxBytes:    int64(getEnvInt("THUMBNAIL_MAX_BYTES", 8*1024*1024)),
		Port:                 getEnvInt("PORT", 8092),
		Host:                 getEnv("HOST", "127.0.0.1"),
		ReadTimeout:          time.Duration(getEnvInt("READ_TIMEOUT_SECONDS", 30)) * time.Second,
		WriteTimeout:         time.Duration(getEnvInt("WRITE_TIMEOUT_SECONDS", 300)) * time.Second,
		APIKey:               getEnv("API_KEY", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		AllowedOrigins:       getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:         getEnvInt("RATE_LIMIT_RPS", 100),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		EnvFile:              envFile,
	}

	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.ThumbnailConcurrency <= 0 {
		cfg.ThumbnailConcurrency = 1
	}

	// Without an API key the bridge only serves the setup endpoints
	if cfg.APIKey == "" {
		cfg.SetupMode = true
		return cfg, nil
	}

	if cfg.JWTSecret == "" {
		// Use API key as fallback for JWT secret
		cfg.JWTSecret = cfg.APIKey
	}

	return cfg, nil
}

// Validate checks the settings every remote operation depends on
func (c *Config) Validate() error {
	if c.DriveAPIURL == "" {
		return fmt.Errorf("DRIVE_API_URL is required")
	}

	u, err := url.Parse(c.DriveAPIURL)
	if err != nil {
		return fmt.Errorf("DRIVE_API_URL is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DRIVE_API_URL must be an absolute http(s) URL, got %q", c.DriveAPIURL)
	}

	if c.DriveTimeout <= 0 {
		return fmt.Errorf("DRIVE_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

// getEnvFile returns the path to the .env file
func getEnvFile() string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return envFile
	}

	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}

	// Fall back to the directory holding the executable
	exe, err := os.Executable()
	if err == nil {
		envPath := filepath.Join(filepath.Dir(exe), ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	return ".env"
}

// SaveAPIKey saves the bridge API key to the .env file
func (c *Config) SaveAPIKey(apiKey string) error {
	updates := map[string]string{"API_KEY": apiKey}
	if err := UpdateEnvFile(c.EnvFile, updates); err != nil {
		return err
	}

	c.APIKey = apiKey
	c.JWTSecret = apiKey
	c.SetupMode = false

	return nil
}

// UpdateEnvFile updates or adds environment variables in a .env file
func UpdateEnvFile(envFile string, updates map[string]string) error {
	existing, err := godotenv.Read(envFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read .env file: %w", err)
		}
		existing = map[string]string{}
	}

	for key, value := range updates {
		existing[key] = value
	}

	if err := godotenv.Write(existing, envFile); err != nil {
		return fmt.Errorf("failed to write .env file: %w", err)
	}

	return os.Chmod(envFile, 0600)
}

// LoadWithDefaults loads config with defaults for testing
func LoadWithDefaults() *Config {
	return &Config{
		DriveAPIURL:          "http://127.0.0.1:9/api",
		SessionCookie:        "session",
		SessionToken:         "test-session",
		DriveTimeout:         5 * time.Second,
		ReadRetries:          0,
		RootLabel:            "My Drive",
		Locale:               "en",
		UsageCacheTTL:        30 * time.Second,
		ThumbnailConcurrency: 4,
		ThumbnailMaxBytes:    1024 * 1024,
		Port:                 8092,
		Host:                 "127.0.0.1",
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         300 * time.Second,
		APIKey:               "test-api-key",
		JWTSecret:            "test-jwt-secret",
		AllowedOrigins:       []string{"*"},
		RateLimitRPS:         100,
		LogLevel:             "info",
	}
}

// Addr returns the bridge address string
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
