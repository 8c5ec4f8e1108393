package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestOrchestratorOptions_ConfigDefaults(t *testing.T) {
	cfg := testConfig()

	opts := orchestratorOptions(cfg, &runFlags{}, false)

	assert.Equal(t, cfg.Run.BatchSize, opts.BatchSize)
	assert.Equal(t, cfg.Run.Concurrency, opts.Concurrency)
	assert.Equal(t, cfg.Run.MaxRetries, opts.MaxRetries)
	assert.Equal(t, cfg.Run.RetryBackoff, opts.RetryBackoff)
	assert.Equal(t, cfg.Run.BatchTimeout, opts.BatchTimeout)
	assert.Empty(t, opts.RunID)
	assert.False(t, opts.DryRun)
	assert.False(t, opts.MergeOnly)
}

func TestOrchestratorOptions_FlagsOverrideConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Run.BatchSize = 1000
	cfg.Run.MaxBatches = 0

	flags := &runFlags{
		runID:        "run-42",
		dryRun:       true,
		npis:         []string{"1234567890"},
		batchSize:    250,
		maxBatches:   3,
		allowPartial: true,
	}
	opts := orchestratorOptions(cfg, flags, true)

	assert.Equal(t, "run-42", opts.RunID)
	assert.Equal(t, 250, opts.BatchSize)
	assert.Equal(t, 3, opts.MaxBatches)
	assert.Equal(t, []string{"1234567890"}, opts.NPIs)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.MergeOnly)
	assert.True(t, opts.AllowPartial)
}

func TestScoringParams_MapsConfig(t *testing.T) {
	params := scoringParams(config.ScoringConfig{
		DecayAlpha:         0.8,
		WindowYears:        4,
		ConcentrationYears: 2,
		PeerMinSize:        25,
		PeerMinClaims:      50,
	})

	assert.Equal(t, 0.8, params.DecayAlpha)
	assert.Equal(t, 4, params.WindowYears)
	assert.Equal(t, 2, params.ConcentrationYears)
	assert.Equal(t, 25, params.PeerMinSize)
	assert.Equal(t, 50, params.PeerMinClaims)
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()

	require.NoError(t, cmd.ParseFlags([]string{"--config", "/tmp/engine.yaml", "--log-level", "debug"}))

	configPath, err := cmd.PersistentFlags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/engine.yaml", configPath)

	logLevel, err := cmd.PersistentFlags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "debug", logLevel)
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["merge"])
	assert.True(t, names["migrate"])
}

func TestInitLogger_OverridesAndStderr(t *testing.T) {
	logger, err := initLogger(config.LogConfig{Level: "info", Format: "json", Output: "stdout"},
		&RootOptions{LogLevel: "DEBUG", LogFormat: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestRunFlags_Defaults(t *testing.T) {
	cmd := newRunCmd()

	require.NoError(t, cmd.ParseFlags(nil))

	batchSize, err := cmd.Flags().GetInt("batch-size")
	require.NoError(t, err)
	assert.Equal(t, 0, batchSize)

	dryRun, err := cmd.Flags().GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, dryRun)
}

func TestConfigDefaults_RunTimings(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, 2*time.Second, cfg.Run.RetryBackoff)
	assert.Equal(t, 15*time.Minute, cfg.Run.BatchTimeout)
	assert.Equal(t, "file://migrations", cfg.Database.MigrationPath)
}
