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
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	AdminEmail        string
	AdminPassword     string
	TOTPIssuer        string
	MaxFailedAttempts int
	BlockDuration     time.Duration
	LoginWindow       time.Duration
	LoginMax          int
	AdminWindow       time.Duration
	AdminMax          int
	PublicWindow      time.Duration
	PublicMax         int
	ResetTokenExpiry  time.Duration
	SweepInterval     time.Duration
}

type EmailConfig struct {
	AWSRegion    string
	FromAddress  string
	ResetURLBase string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "luckynumbers"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          env,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			TokenExpiry:       getEnvAsDuration("JWT_EXPIRE", 7*24*time.Hour),
			AdminEmail:        getEnv("ADMIN_EMAIL", ""),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
			TOTPIssuer:        getEnv("TOTP_ISSUER", "Lucky Numbers Admin"),
			MaxFailedAttempts: getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			BlockDuration:     getEnvAsDuration("BLOCK_DURATION", 30*time.Minute),
			LoginWindow:       getEnvAsDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
			LoginMax:          getEnvAsInt("LOGIN_RATE_MAX", 3),
			AdminWindow:       getEnvAsDuration("ADMIN_RATE_WINDOW", 10*time.Minute),
			AdminMax:          getEnvAsInt("ADMIN_RATE_MAX", 50),
			PublicWindow:      getEnvAsDuration("PUBLIC_RATE_WINDOW", 15*time.Minute),
			PublicMax:         getEnvAsInt("PUBLIC_RATE_MAX", 100),
			ResetTokenExpiry:  getEnvAsDuration("RESET_TOKEN_EXPIRY", 10*time.Minute),
			SweepInterval:     getEnvAsDuration("ABUSE_SWEEP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("EMAIL_FROM", ""),
			ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:8080"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
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
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
