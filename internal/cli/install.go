package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cellar/internal/installer"
	"github.com/teamcutter/cellar/internal/transfer"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <id>",
		Short: "Install an app into Bottles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			if ok, err := app.store.IsInstalled(args[0]); err != nil {
				return err
			} else if ok {
				fmt.Printf("%s %s already installed, use %s to bring it up to date\n",
					yellow("!"), bold(args[0]), cyan("cellar update"))
				return nil
			}

			install, err := app.bottlesInstall()
			if err != nil {
				return err
			}

			stop := withSpinner(ctx, fmt.Sprintf("Looking up %s...", args[0]))
			rp, entry, ok := app.repos.ByID(ctx, args[0])
			stop()
			if !ok {
				return fmt.Errorf("app %q not found in any configured repository", args[0])
			}
			if entry.Archive == "" {
				return fmt.Errorf("app %q has no downloadable archive", args[0])
			}

			archiveURI, err := rp.ResolveAssetURI(ctx, entry.Archive)
			if err != nil {
				return err
			}

			repoCfg, _ := app.cfg.Repo(rp.Name())
			acquirer, err := transfer.NewAcquirer(transferOptions(repoCfg))
			if err != nil {
				return err
			}

			bundleName, err := installer.New(acquirer, app.log).Install(
				ctx, entry, archiveURI, install.DataPath, newProgressSink())
			if err != nil {
				return err
			}

			if err := app.store.RecordInstall(entry.ID, bundleName, entry.Version, rp.Name()); err != nil {
				return err
			}

			// Nudge Bottles so the new bundle shows up without a restart.
			if _, err := install.Command(ctx, "list", "bottles").CombinedOutput(); err != nil {
				fmt.Printf("%s bottles-cli not reachable, the bundle will appear after Bottles restarts\n", dim("○"))
			}

			fmt.Printf("\n%s %s%s%s\n  %s %s\n",
				green("✓"), bold(entry.Name), bold("-"), bold(entry.Version),
				cyan("path:"), filepath.Join(install.DataPath, bundleName))
			return nil
		},
	}
}
