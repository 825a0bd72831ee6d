package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cellar/internal/domain"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show details for an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			stop := withSpinner(ctx, fmt.Sprintf("Looking up %s...", args[0]))
			rp, entry, ok := app.repos.ByID(ctx, args[0])
			stop()
			if !ok {
				return fmt.Errorf("app %q not found in any configured repository", args[0])
			}

			fmt.Printf("\n%s %s %s\n", green("●"), bold(entry.Name), entry.Version)
			fmt.Printf("  %s %s\n", cyan("id:"), entry.ID)
			fmt.Printf("  %s %s\n", cyan("category:"), entry.Category)
			fmt.Printf("  %s %s\n", cyan("repo:"), rp.Name())
			if entry.Developer != "" {
				fmt.Printf("  %s %s\n", cyan("developer:"), entry.Developer)
			}
			if entry.Summary != "" {
				fmt.Printf("  %s %s\n", cyan("summary:"), entry.Summary)
			}
			if entry.Description != "" {
				fmt.Printf("  %s %s\n", cyan("description:"), entry.Description)
			}
			if entry.ArchiveSize > 0 {
				fmt.Printf("  %s %.1f MiB\n", cyan("size:"), float64(entry.ArchiveSize)/(1<<20))
			}
			if entry.UpdateStrategy == domain.UpdateFull {
				fmt.Printf("  %s full (updates replace the whole bundle)\n", cyan("update strategy:"))
			}
			if bw := entry.BuiltWith; bw.Runner != "" || bw.DXVK != "" || bw.VKD3D != "" {
				fmt.Printf("  %s runner %s, dxvk %s, vkd3d %s\n", cyan("built with:"),
					orDash(bw.Runner), orDash(bw.DXVK), orDash(bw.VKD3D))
			}
			if entry.Changelog != "" {
				fmt.Printf("\n%s\n%s\n", bold("Changelog"), entry.Changelog)
			}

			if rec, err := app.store.Get(entry.ID); err == nil && rec != nil {
				line := fmt.Sprintf("  %s %s as %s", green("✓"), "installed", bold(rec.BundleName))
				if rec.Version != entry.Version {
					line += fmt.Sprintf("  %s", yellow(fmt.Sprintf("↑ %s available", entry.Version)))
				}
				fmt.Printf("\n%s\n", line)
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
