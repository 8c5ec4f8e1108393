package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/config"
)

// validConfig returns a Config that passes Validate() with all required fields set.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	// Fill required fields that have no default.
	cfg.Database.User = "claidex"
	cfg.Database.Password = "secret"
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Database.Host = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_MissingDatabaseUser(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Database.User = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user")
}

func TestConfig_Validate_InvalidDatabasePort(t *testing.T) {
	t.Parallel()
	cases := []int{0, -1, 65536, 100000}
	for _, p := range cases {
		p := p
		t.Run("", func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			cfg.Database.Port = p
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "database.port")
		})
	}
}

func TestConfig_Validate_MissingNeo4jURI(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Neo4j.URI = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j.uri")
}

func TestConfig_Validate_MissingRedisAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestConfig_Validate_NonPositivePartitionTTL(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.PartitionTTL = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.partition_ttl")
}

func TestConfig_Validate_KafkaOnlyWhenEnabled(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Kafka.Enabled = false
	cfg.Kafka.Brokers = nil
	assert.NoError(t, cfg.Validate(), "disabled kafka must not require brokers")

	cfg.Kafka.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestConfig_Validate_MinIOOnlyWhenEnabled(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.MinIO.Enabled = true
	cfg.MinIO.Endpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.endpoint")
}

func TestConfig_Validate_DecayAlphaRange(t *testing.T) {
	t.Parallel()
	for _, a := range []float64{-0.1, 0, 1.1} {
		cfg := validConfig()
		cfg.Scoring.DecayAlpha = a
		err := cfg.Validate()
		require.Error(t, err, "alpha=%g must be rejected", a)
		assert.Contains(t, err.Error(), "decay_alpha")
	}

	cfg := validConfig()
	cfg.Scoring.DecayAlpha = 1.0
	assert.NoError(t, cfg.Validate(), "alpha=1 disables decay but is legal")
}

func TestConfig_Validate_ConcentrationWindowBounds(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Scoring.ConcentrationYears = cfg.Scoring.WindowYears + 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concentration_years")
}

func TestConfig_Validate_RunBounds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Run.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Run.Concurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Run.MaxRetries = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_Validate_InvalidLogFormat(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Format = "text"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}
