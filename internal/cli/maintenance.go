package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"serotonyl.ru/lingvo-api/internal/app"
)

// newMaintenanceCmd — разовый прогон обслуживания для внешнего CRON.
func newMaintenanceCmd() *cobra.Command {
	var daily, weekly bool

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Разово выполнить ночное (--daily) и/или недельное (--weekly) обслуживание",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !daily && !weekly {
				return fmt.Errorf("укажите --daily и/или --weekly")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")

			if daily {
				summary, err := application.Maintenance.RunDaily(cmd.Context())
				if err != nil {
					return err
				}
				if err := out.Encode(summary); err != nil {
					return err
				}
			}
			if weekly {
				n, err := application.Maintenance.RunWeekly(cmd.Context())
				if err != nil {
					return err
				}
				if err := out.Encode(map[string]int64{"weeklyReset": n}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&daily, "daily", false, "проверка стриков и сброс daily_xp")
	cmd.Flags().BoolVar(&weekly, "weekly", false, "сброс weekly_xp")
	return cmd
}
