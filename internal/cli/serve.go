package cli

import (
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API и планировщик",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"env":     cfg.AppEnv,
				"storage": cfg.StorageDriver,
			}).Info("=== Сервис запускается ===")

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Run(cmd.Context()); err != nil {
				return err
			}
			log.Info("=== Сервис остановлен ===")
			return nil
		},
	}
}
