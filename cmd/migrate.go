package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/pos/internal/config"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			down, _ := cmd.Flags().GetBool("down")
			steps, _ := cmd.Flags().GetInt("steps")
			return runMigration(cmd.Context(), configName(cmd), down, steps)
		},
	}
	cmd.Flags().Bool("down", false, "roll migrations back instead of applying them")
	cmd.Flags().Int("steps", 0, "number of migrations to apply or roll back, 0 means all")
	return cmd
}

func runMigration(c context.Context, configName string, down bool, steps int) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main runMigration").
		Bool("down", down).
		Int("steps", steps).
		Logger()
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, configName)

	pool, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed initializing database with error=%w", err)
	}
	defer pool.Close()

	if down {
		return infra.MigrateDown(c, pool, cfg.Database, steps)
	}
	return infra.MigrateUp(c, pool, cfg.Database, steps)
}
