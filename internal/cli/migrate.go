package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"serotonyl.ru/lingvo-api/internal/db/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции БД",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("миграции нужны только для STORAGE_DRIVER=postgres")
			}

			pool, err := postgres.NewPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return postgres.RunMigrations(cmd.Context(), pool)
		},
	}
}
