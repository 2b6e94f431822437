package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"localdrive/internal/domain"
	"localdrive/internal/service"
)

func NewListCommand(opts *options) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a folder, e.g. ls Docs/Reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			nav := service.NewNavigator()
			content, err := a.hierarchy.Browse(cmd.Context(), nav)
			if err != nil {
				return err
			}

			for _, name := range strings.Split(path, "/") {
				if name == "" {
					continue
				}
				folder := findFolder(content.Folders, name)
				if folder == nil {
					return domain.NewNotFound("folder %q not found", name)
				}
				nav.Enter(folder)
				if content, err = a.hierarchy.Browse(cmd.Context(), nav); err != nil {
					return err
				}
			}

			printContent(cmd, content, query)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name or type")

	return cmd
}

func findFolder(folders []domain.Item, name string) *domain.Item {
	for i := range folders {
		if folders[i].Name == name {
			return &folders[i]
		}
	}
	return nil
}

func printContent(cmd *cobra.Command, content *domain.FolderContent, query string) {
	crumbs := make([]string, 0, len(content.Path))
	for _, c := range content.Path {
		crumbs = append(crumbs, c.Name)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Join(crumbs, " / "))

	for _, f := range content.Folders {
		if query == "" || f.Matches(query) {
			fmt.Fprintf(out, "  📁 %s/\t%s\n", f.Name, f.ID)
		}
	}
	for _, f := range content.Files {
		if query == "" || f.Matches(query) {
			fmt.Fprintf(out, "  📄 %s\t%d bytes\t%s\t%s\n", f.Name, f.SizeBytes, f.MediaType, f.ID)
		}
	}
}

func NewQuotaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.quota.GetQuotaInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Used %d of %d bytes (%.2f%%), %d available\n",
				info.UsedSpace, info.TotalSpace, info.UsagePercent, info.AvailableSpace)
			return nil
		},
	}
}
