package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"localdrive/internal/config"
	"localdrive/internal/repository"
)

func NewMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(opts.configPath)
			if err != nil {
				return err
			}

			db, err := repository.Open(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Str("driver", cfg.Database.Driver).Msg("migrations applied")
			return nil
		},
	}
}
