package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewExportCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Export items as a JSON document; without ids exports every active item",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.shares.Export(cmd.Context(), args)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(doc, '\n'))
				return err
			}
			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			log.Info().Str("file", output).Int("bytes", len(doc)).Msg("export written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, stdout by default")

	return cmd
}

func NewImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import items from an export document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.shares.Import(cmd.Context(), data)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items\n", len(items))
			return nil
		},
	}
}

func NewTrashCommand(opts *options) *cobra.Command {
	trashCmd := &cobra.Command{
		Use:   "trash",
		Short: "Manage the trash",
	}

	trashCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List trashed items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.trash.GetTrashItems(cmd.Context())
			if err != nil {
				return err
			}
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", it.TrashedAt.Format("2006-01-02 15:04:05"), it.Name, it.ID)
			}
			return nil
		},
	})

	trashCmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Restore an item from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.trash.RestoreFromTrash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if item == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to restore")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", item.Name)
			return nil
		},
	})

	trashCmd.AddCommand(&cobra.Command{
		Use:   "empty",
		Short: "Delete every trashed item permanently",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.trash.EmptyTrash(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items\n", n)
			return nil
		},
	})

	return trashCmd
}
