package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Keycloak   KeycloakConfig
	Email      EmailConfig
	Credential CredentialConfig
	Events     EventsConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
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

type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type EmailConfig struct {
	Enabled         bool
	APIKey          string
	FromEmail       string
	FromName        string
	VerificationURL string
}

// CredentialConfig governs machine-principal credential policy and the GDPR
// retention gate.
type CredentialConfig struct {
	RotationWindow  time.Duration
	RetentionPeriod time.Duration
}

type EventsConfig struct {
	Stream string
	MaxLen int64
}

func Load() (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "principal"),
			Password: getEnv("DB_PASSWORD", "principal"),
			DBName:   getEnv("DB_NAME", "principaldb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Keycloak: KeycloakConfig{
			BaseURL:      getEnv("KEYCLOAK_BASE_URL", "http://localhost:8081"),
			Realm:        getEnv("KEYCLOAK_REALM", "platform"),
			ClientID:     getEnv("KEYCLOAK_CLIENT_ID", "principal-service"),
			ClientSecret: getEnv("KEYCLOAK_CLIENT_SECRET", ""),
			Timeout:      getDurationEnv("KEYCLOAK_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			Enabled:         getBoolEnv("EMAIL_ENABLED", false),
			APIKey:          getEnv("EMAIL_API_KEY", ""),
			FromEmail:       getEnv("EMAIL_FROM", "no-reply@cloudcentinel.io"),
			FromName:        getEnv("EMAIL_FROM_NAME", "CloudCentinel"),
			VerificationURL: getEnv("EMAIL_VERIFICATION_URL", "http://localhost:8080/activate"),
		},
		Credential: CredentialConfig{
			RotationWindow:  getDurationEnv("CREDENTIAL_ROTATION_WINDOW", 90*24*time.Hour),
			RetentionPeriod: getDurationEnv("GDPR_RETENTION_PERIOD", 30*24*time.Hour),
		},
		Events: EventsConfig{
			Stream: getEnv("EVENTS_STREAM", "principal-events"),
			MaxLen: int64(getIntEnv("EVENTS_STREAM_MAXLEN", 100000)),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
