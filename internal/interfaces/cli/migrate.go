package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claidex/risk-engine/internal/infrastructure/database/postgres"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

// newMigrateCmd creates the "migrate" subcommand managing the result-sink
// schema. Rollback is behind --down for development use.
func newMigrateCmd() *cobra.Command {
	var downSteps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending result-sink schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			dbURL := postgres.BuildDSN(cliCtx.Config.Database)
			path := cliCtx.Config.Database.MigrationPath

			if downSteps > 0 {
				if err := postgres.RollbackMigration(dbURL, path, downSteps); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				cliCtx.Logger.Info("migrations rolled back", logging.Int("steps", downSteps))
				return nil
			}

			if err := postgres.RunMigrations(dbURL, path); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			cliCtx.Logger.Info("migrations applied", logging.String("path", path))
			return nil
		},
	}
	cmd.Flags().IntVar(&downSteps, "down", 0, "roll back this many migrations instead of applying")

	return cmd
}
