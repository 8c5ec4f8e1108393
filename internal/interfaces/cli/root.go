// Package cli implements the riskengine command tree: migrate, run, and
// merge. The root command owns configuration loading and logger setup; the
// subcommands wire infrastructure and drive the scoring orchestrator.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claidex/risk-engine/internal/config"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// CLIContext carries the loaded config and logger through the command tree.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
}

// NewRootCommand creates the root cobra command with global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "riskengine",
		Short:   "Claidex risk engine — composite risk scoring for healthcare providers",
		Long:    "riskengine computes peer-relative composite risk scores for the full\nprovider population: billing outliers, ownership-chain exposure, payment\ntrajectory, exclusion proximity, and program concentration, calibrated to\na global 0-100 scale.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./riskengine.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format override (json, console)")

	cmd.AddCommand(
		newMigrateCmd(),
		newRunCmd(),
		newMergeCmd(),
	)

	return cmd
}

// persistentPreRun loads config and builds the logger, then stores the
// CLIContext on the command context for subcommands.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(cfg.Log, opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	ctx := context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{
		Config: cfg,
		Logger: logger,
	})
	cmd.SetContext(ctx)

	return nil
}

// initConfig loads configuration: explicit --config path first, then the
// default search paths, then pure CLAIDEX_* environment variables.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./riskengine.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".riskengine", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/riskengine/config.yaml")

	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}

	return config.LoadFromEnv()
}

// initLogger maps the engine log config onto the logging package, applying
// CLI overrides. CLI logs go to stderr so report JSON on stdout stays clean.
func initLogger(logCfg config.LogConfig, opts *RootOptions) (logging.Logger, error) {
	level := logCfg.Level
	if opts.LogLevel != "" {
		level = strings.ToLower(opts.LogLevel)
	}
	format := logCfg.Format
	if opts.LogFormat != "" {
		format = strings.ToLower(opts.LogFormat)
	}

	outputs := []string{"stderr"}
	if logCfg.Output != "" && logCfg.Output != "stdout" {
		outputs = []string{logCfg.Output}
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           format,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts the CLIContext placed by persistentPreRun.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLI context not initialized")
	}
	return cliCtx, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command. It is the entry point called from main.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
