package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "localdrive",
		Short: "Local file drive",
		Long: `localdrive keeps files and folders in a local database, moves deleted items to a trash
with undo, and shares items through links, object storage and messengers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env необязателен: переменные могут прийти из окружения
			_ = godotenv.Load()

			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if opts.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", ".app.env", "Path to the application config")
	rootCmd.PersistentFlags().StringVar(&opts.s3ConfigPath, "s3-config", ".s3.env", "Path to the object storage config")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewMigrateCommand(opts))
	rootCmd.AddCommand(NewListCommand(opts))
	rootCmd.AddCommand(NewQuotaCommand(opts))
	rootCmd.AddCommand(NewExportCommand(opts))
	rootCmd.AddCommand(NewImportCommand(opts))
	rootCmd.AddCommand(NewTrashCommand(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
