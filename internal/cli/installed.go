package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newInstalledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List installed apps",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			apps, err := app.store.List()
			if err != nil {
				return err
			}
			if len(apps) == 0 {
				fmt.Printf("\n%s No apps installed\n", dim("○"))
				return nil
			}

			ctx := cmd.Context()
			latest := make(map[string]string)
			mu := &sync.Mutex{}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(app.cfg.MaxParallel)

			for _, rec := range apps {
				rec := rec
				g.Go(func() error {
					_, entry, ok := app.repos.ByID(gctx, rec.ID)
					if !ok {
						return nil
					}
					mu.Lock()
					latest[rec.ID] = entry.Version
					mu.Unlock()
					return nil
				})
			}
			_ = g.Wait()

			fmt.Printf("Installed apps:\n\n")
			for _, rec := range apps {
				line := fmt.Sprintf(" %s %s %s", green("✓"), bold(rec.ID), rec.Version)
				if rec.BundleName != rec.ID {
					line += fmt.Sprintf(" %s", dim("as "+rec.BundleName))
				}
				if ver, ok := latest[rec.ID]; ok && ver != rec.Version {
					line += fmt.Sprintf("  %s", yellow(fmt.Sprintf("↑ %s", ver)))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
