package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultPartitionTTL, cfg.Redis.PartitionTTL)
	assert.Equal(t, DefaultDecayAlpha, cfg.Scoring.DecayAlpha)
	assert.Equal(t, DefaultWindowYears, cfg.Scoring.WindowYears)
	assert.Equal(t, DefaultPeerMinSize, cfg.Scoring.PeerMinSize)
	assert.Equal(t, DefaultBatchSize, cfg.Run.BatchSize)
	assert.Equal(t, DefaultMaxRetries, cfg.Run.MaxRetries)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Run.BatchSize = 250
	cfg.Scoring.DecayAlpha = 0.9
	cfg.Redis.PartitionTTL = time.Hour
	ApplyDefaults(cfg)

	assert.Equal(t, 250, cfg.Run.BatchSize)
	assert.Equal(t, 0.9, cfg.Scoring.DecayAlpha)
	assert.Equal(t, time.Hour, cfg.Redis.PartitionTTL)
}

func TestApplyDefaults_NilConfig(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
