package utils

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/Anvoria/authgate/internal/config"
	"github.com/Anvoria/authgate/internal/database"
)

// FindProjectRoot finds the project root directory by looking for go.mod file
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd, nil
		}
		dir = parent
	}
}

// LoadTestConfig loads configuration for testing.
// The path comes from TEST_CONFIG_PATH and defaults to config.yaml in the project root.
// The test is skipped when the file does not exist.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	projectRoot, err := FindProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	configPath := os.Getenv("TEST_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(projectRoot, configPath)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Skipf("Test config %s not available: %v", configPath, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	return cfg
}

// SetupTestDB connects to the PostgreSQL database named in the test config and
// auto-migrates the provided models. The test is skipped when no database is
// configured or reachable.
func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	cfg := LoadTestConfig(t)
	if !cfg.Database.Configured() {
		t.Skip("Test database not configured")
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		t.Skipf("Test database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("Failed to migrate test database: %v", err)
		}
	}

	return db
}
