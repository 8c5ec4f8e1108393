// Package config defines all configuration structures for the risk engine.
// No I/O or parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds PostgreSQL connection parameters for the reference
// store and the result sink (both live in the same cluster).
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// Neo4jConfig holds ownership-graph connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// RedisConfig holds partition-store connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PartitionTTL time.Duration `mapstructure:"partition_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds run-event producer parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
	Enabled         bool     `mapstructure:"enabled"`
}

// MinIOConfig holds object-storage parameters for population snapshots.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Enabled   bool   `mapstructure:"enabled"`
}

// ScoringConfig holds the scoring-window tunables.  Component weights and
// statistical constants are fixed in the scoring package; only the data
// windows and peer thresholds are operator-adjustable.
type ScoringConfig struct {
	DecayAlpha         float64 `mapstructure:"decay_alpha"`
	WindowYears        int     `mapstructure:"window_years"`
	ConcentrationYears int     `mapstructure:"concentration_years"`
	PeerMinSize        int     `mapstructure:"peer_min_size"`
	PeerMinClaims      int     `mapstructure:"peer_min_claims"`
	MaxOwnershipHops   int     `mapstructure:"max_ownership_hops"`
	MaxFrontier        int     `mapstructure:"max_frontier"`
}

// RunConfig holds batch-orchestration parameters.
type RunConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	MaxBatches     int           `mapstructure:"max_batches"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	EnableSnapshot bool          `mapstructure:"enable_snapshot"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the engine.  Every
// infrastructure component and application service reads its settings from the
// relevant sub-struct.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Run      RunConfig      `mapstructure:"run"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the engine.
func (c *Config) Validate() error {
	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Neo4j — the graph is optional at runtime but the address must parse.
	if c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}
	if c.Redis.PartitionTTL <= 0 {
		return fmt.Errorf("config: redis.partition_ttl must be positive, got %s", c.Redis.PartitionTTL)
	}

	// Kafka — only validated when enabled.
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}

	// MinIO — only validated when enabled.
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required when minio.enabled")
	}

	// Scoring
	if c.Scoring.DecayAlpha <= 0 || c.Scoring.DecayAlpha > 1 {
		return fmt.Errorf("config: scoring.decay_alpha %g is out of range (0, 1]", c.Scoring.DecayAlpha)
	}
	if c.Scoring.WindowYears < 1 {
		return fmt.Errorf("config: scoring.window_years must be ≥ 1, got %d", c.Scoring.WindowYears)
	}
	if c.Scoring.ConcentrationYears < 1 || c.Scoring.ConcentrationYears > c.Scoring.WindowYears {
		return fmt.Errorf("config: scoring.concentration_years %d must be in [1, window_years]", c.Scoring.ConcentrationYears)
	}
	if c.Scoring.PeerMinSize < 1 {
		return fmt.Errorf("config: scoring.peer_min_size must be ≥ 1, got %d", c.Scoring.PeerMinSize)
	}
	if c.Scoring.MaxOwnershipHops < 1 {
		return fmt.Errorf("config: scoring.max_ownership_hops must be ≥ 1, got %d", c.Scoring.MaxOwnershipHops)
	}

	// Run
	if c.Run.BatchSize < 1 {
		return fmt.Errorf("config: run.batch_size must be ≥ 1, got %d", c.Run.BatchSize)
	}
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("config: run.concurrency must be ≥ 1, got %d", c.Run.Concurrency)
	}
	if c.Run.MaxRetries < 0 {
		return fmt.Errorf("config: run.max_retries must be ≥ 0, got %d", c.Run.MaxRetries)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
