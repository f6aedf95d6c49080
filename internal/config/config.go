package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Geocode  GeocodeConfig
	Push     PushConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig carries one 32-byte symmetric key per token purpose so a token
// minted for one purpose can never validate for another.
type AuthConfig struct {
	SessionKey      []byte
	VerificationKey []byte
	ResetKey        []byte
	SessionDuration time.Duration
}

type GeocodeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type PushConfig struct {
	ServerKey      string
	Endpoint       string
	PacingInterval time.Duration
	SendTimeout    time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FrontendURL  string
}

// Load reads configuration from environment variables, consulting a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "elevate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SessionKey:      []byte(getEnv("AUTH_SESSION_KEY", "")),
			VerificationKey: []byte(getEnv("AUTH_VERIFICATION_KEY", "")),
			ResetKey:        []byte(getEnv("AUTH_RESET_KEY", "")),
			SessionDuration: getDurationEnv("AUTH_SESSION_DURATION", 90*24*time.Hour),
		},
		Geocode: GeocodeConfig{
			APIKey:  getEnv("MAPQUEST_API_KEY", ""),
			BaseURL: getEnv("MAPQUEST_BASE_URL", "http://www.mapquestapi.com"),
			Timeout: getDurationEnv("GEOCODE_TIMEOUT", 10*time.Second),
		},
		Push: PushConfig{
			ServerKey:      getEnv("PUSH_SERVER_KEY", ""),
			Endpoint:       getEnv("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
			PacingInterval: getDurationEnv("PUSH_PACING_INTERVAL", 1*time.Second),
			SendTimeout:    getDurationEnv("PUSH_SEND_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}

	if err := validateKey("AUTH_SESSION_KEY", cfg.Auth.SessionKey); err != nil {
		return nil, err
	}
	if err := validateKey("AUTH_VERIFICATION_KEY", cfg.Auth.VerificationKey); err != nil {
		return nil, err
	}
	if err := validateKey("AUTH_RESET_KEY", cfg.Auth.ResetKey); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateKey checks a PASETO v4.local key length (must be 32 bytes).
func validateKey(name string, key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("%s must be exactly 32 bytes, got %d", name, len(key))
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns the Redis connection address (host:port).
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev.
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
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
