package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cellar/internal/domain"
)

func newBrowseCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse apps available in configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			stop := withSpinner(ctx, "Fetching catalogues...")
			entries := app.repos.FetchAll(ctx)
			stop()

			if category != "" {
				var filtered []domain.Entry
				for _, e := range entries {
					if e.Category == category {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if len(entries) == 0 {
				fmt.Printf("%s No apps found\n", dim("○"))
				return nil
			}

			byCategory := make(map[string][]domain.Entry)
			for _, e := range entries {
				byCategory[e.Category] = append(byCategory[e.Category], e)
			}
			categories := make([]string, 0, len(byCategory))
			for c := range byCategory {
				categories = append(categories, c)
			}
			sort.Strings(categories)

			for _, c := range categories {
				apps := byCategory[c]
				sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

				fmt.Printf("\n%s\n", bold(c))
				for _, e := range apps {
					glyph := green("●")
					suffix := ""
					if ok, _ := app.store.IsInstalled(e.ID); ok {
						glyph = green("✓")
						suffix = dim(" (installed)")
					}
					fmt.Printf(" %s %s %s %s%s\n", glyph, bold(e.Name), e.Version, dim(e.ID), suffix)
					if e.Summary != "" {
						fmt.Printf("   %s\n", dim(e.Summary))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show apps in this category")
	return cmd
}
