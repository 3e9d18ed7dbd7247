// Package cli — команды запуска сервиса (cobra).
package cli

import (
	"context"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/config"
)

// Execute запускает CLI с контекстом, который отменяется по сигналу.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lingvo-api",
		Short:         "XP и стрики платформы изучения английского",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newMaintenanceCmd())
	return cmd
}

// loadConfig читает конфигурацию и применяет уровень логирования.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный уровень логирования, оставляем debug")
	}
	return cfg, nil
}
