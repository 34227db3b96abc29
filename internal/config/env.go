package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment         EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath          string          `env:"CONFIG_PATH"`
	JWTSecret           string          `env:"JWT_SECRET"`
	JWTSecretPrevious   string          `env:"JWT_SECRET_PREVIOUS"`
	SessionTimeoutHours float64         `env:"SESSION_TIMEOUT_HOURS"`
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Variables already set win over the file. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// LoadEnv loads the environment variables
func LoadEnv() *Environment {
	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.ToLower(strings.TrimSpace(envStr))
	envType := EnvironmentType(envStr)

	// Validate and default to development if invalid
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment:         envType,
		ConfigPath:          getEnv("CONFIG_PATH", "config.yaml"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTSecretPrevious:   getEnv("JWT_SECRET_PREVIOUS", ""),
		SessionTimeoutHours: getEnvFloat("SESSION_TIMEOUT_HOURS"),
	}
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat parses a float variable; unset, unparsable, non-finite or non-positive values yield 0
func getEnvFloat(key string) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		slog.Warn("Ignoring invalid environment value", "key", key, "value", raw)
		return 0
	}
	return v
}
