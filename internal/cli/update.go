package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cellar/internal/domain"
	"github.com/teamcutter/cellar/internal/transfer"
	"github.com/teamcutter/cellar/internal/updater"
)

func newUpdateCmd() *cobra.Command {
	var backupPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an installed app, preserving user data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			rec, err := app.store.Get(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("app %q is not installed", args[0])
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

			if entry.Version == rec.Version && !force {
				fmt.Printf("%s %s already up-to-date\n", dim("○"), bold(entry.Name))
				return nil
			}
			if entry.UpdateStrategy == domain.UpdateFull {
				fmt.Printf("%s %s ships full-replacement updates; user data is still preserved\n",
					yellow("!"), bold(entry.Name))
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

			bundleDir := filepath.Join(install.DataPath, rec.BundleName)
			err = updater.New(acquirer, nil, app.log).Update(
				ctx, entry, archiveURI, bundleDir,
				updater.Options{BackupPath: backupPath}, newProgressSink())
			if err != nil {
				return err
			}

			if err := app.store.RecordInstall(entry.ID, rec.BundleName, entry.Version, rp.Name()); err != nil {
				return err
			}

			fmt.Printf("\n%s %s%s%s → %s\n", green("✓"), bold(entry.Name), bold("@"), bold(rec.Version), bold(entry.Version))
			if backupPath != "" {
				fmt.Printf("  %s %s\n", cyan("backup:"), backupPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backupPath, "backup", "", "Archive the current bundle to this path first")
	cmd.Flags().BoolVar(&force, "force", false, "Update even when the version matches")
	return cmd
}
