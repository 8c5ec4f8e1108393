// Package config provides configuration loading, defaults, and validation for
// the risk engine.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "claidex"
	DefaultDBMaxConns = 25

	DefaultMigrationPath = "file://migrations"

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultRedisAddr    = "localhost:6379"
	DefaultPartitionTTL = 24 * time.Hour
	DefaultKeyPrefix    = "risk"

	DefaultKafkaBroker = "localhost:9092"
	DefaultTopicPrefix = "risk"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "risk-snapshots"

	DefaultDecayAlpha         = 0.7
	DefaultWindowYears        = 5
	DefaultConcentrationYears = 3
	DefaultPeerMinSize        = 50
	DefaultPeerMinClaims      = 100
	DefaultMaxOwnershipHops   = 5
	DefaultMaxFrontier        = 50000

	DefaultBatchSize    = 1000
	DefaultConcurrency  = 8
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 2 * time.Second
	DefaultBatchTimeout = 15 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate() so that
// optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PartitionTTL == 0 {
		cfg.Redis.PartitionTTL = DefaultPartitionTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultKeyPrefix
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultTopicPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Scoring ───────────────────────────────────────────────────────────────
	if cfg.Scoring.DecayAlpha == 0 {
		cfg.Scoring.DecayAlpha = DefaultDecayAlpha
	}
	if cfg.Scoring.WindowYears == 0 {
		cfg.Scoring.WindowYears = DefaultWindowYears
	}
	if cfg.Scoring.ConcentrationYears == 0 {
		cfg.Scoring.ConcentrationYears = DefaultConcentrationYears
	}
	if cfg.Scoring.PeerMinSize == 0 {
		cfg.Scoring.PeerMinSize = DefaultPeerMinSize
	}
	if cfg.Scoring.PeerMinClaims == 0 {
		cfg.Scoring.PeerMinClaims = DefaultPeerMinClaims
	}
	if cfg.Scoring.MaxOwnershipHops == 0 {
		cfg.Scoring.MaxOwnershipHops = DefaultMaxOwnershipHops
	}
	if cfg.Scoring.MaxFrontier == 0 {
		cfg.Scoring.MaxFrontier = DefaultMaxFrontier
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	if cfg.Run.BatchSize == 0 {
		cfg.Run.BatchSize = DefaultBatchSize
	}
	if cfg.Run.Concurrency == 0 {
		cfg.Run.Concurrency = DefaultConcurrency
	}
	if cfg.Run.MaxRetries == 0 {
		cfg.Run.MaxRetries = DefaultMaxRetries
	}
	if cfg.Run.RetryBackoff == 0 {
		cfg.Run.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Run.BatchTimeout == 0 {
		cfg.Run.BatchTimeout = DefaultBatchTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
