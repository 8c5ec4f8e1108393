// Package integration holds tests that exercise the engine against real
// backends. They are skipped unless CLAIDEX_INTEGRATION_TEST=1 and assume
// local containers started with the default ports.
package integration

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/claidex/risk-engine/internal/config"
)

const (
	// EnvIntegrationEnabled controls whether integration tests run.
	EnvIntegrationEnabled = "CLAIDEX_INTEGRATION_TEST"

	// EnvPostgresHost and EnvPostgresPort override the default Postgres
	// location.
	EnvPostgresHost = "CLAIDEX_TEST_POSTGRES_HOST"
	EnvPostgresPort = "CLAIDEX_TEST_POSTGRES_PORT"

	// EnvRedisAddr overrides the default Redis address.
	EnvRedisAddr = "CLAIDEX_TEST_REDIS_ADDR"
)

// SkipIfNoIntegration skips the test unless integration mode is enabled.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) != "1" {
		t.Skipf("integration tests disabled; set %s=1 to run", EnvIntegrationEnabled)
	}
}

// TestDatabaseConfig returns a DatabaseConfig pointing at the test Postgres.
func TestDatabaseConfig() config.DatabaseConfig {
	cfg := config.DatabaseConfig{
		Host:          envOr(EnvPostgresHost, "localhost"),
		Port:          5432,
		User:          "claidex",
		Password:      "claidex",
		DBName:        "claidex_test",
		SSLMode:       "disable",
		MaxConns:      5,
		MigrationPath: "file://../../migrations",
	}
	if raw := os.Getenv(EnvPostgresPort); raw != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			cfg.Port = port
		}
	}
	return cfg
}

// TestRedisConfig returns a RedisConfig pointing at the test Redis.
func TestRedisConfig() config.RedisConfig {
	cfg := config.RedisConfig{
		Addr: envOr(EnvRedisAddr, "localhost:6379"),
		DB:   1,
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
