package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teamcutter/cellar/internal/bottles"
	"github.com/teamcutter/cellar/internal/config"
	"github.com/teamcutter/cellar/internal/repo"
	"github.com/teamcutter/cellar/internal/source"
	"github.com/teamcutter/cellar/internal/state"
	"github.com/teamcutter/cellar/internal/transfer"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "cellar",
		Short: "Install and update app bundles into Bottles",
	}
	rootCmd.AddCommand(
		newReposCmd(),
		newBrowseCmd(),
		newInfoCmd(),
		newInstallCmd(),
		newUpdateCmd(),
		newInstalledCmd(),
		newVersionCmd(),
	)
	return rootCmd.Execute()
}

// app bundles the long-lived collaborators every command needs.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *state.SQLiteState
	repos *repo.Set
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	log, err := logCfg.Build()
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(cfg.StateDB)
	if err != nil {
		return nil, err
	}

	repos := make([]*repo.Repository, 0, len(cfg.Repositories))
	for _, rc := range cfg.Repositories {
		r, err := repo.New(rc.Name, rc.URI, sourceOptions(rc), log)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("repository %s: %w", rc.Name, err)
		}
		repos = append(repos, r)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		repos: repo.NewSet(repos, cfg.MaxParallel, log),
	}, nil
}

func (a *app) Close() {
	for _, r := range a.repos.Repositories() {
		r.Close()
	}
	a.store.Close()
	_ = a.log.Sync()
}

// bottlesInstall resolves the active Bottles installation, honoring the
// configured data-path override.
func (a *app) bottlesInstall() (*bottles.Install, error) {
	install := bottles.Detect(a.cfg.BottlesDataPath)
	if install == nil {
		return nil, fmt.Errorf("no Bottles installation found (set bottles_data_path in the config to override detection)")
	}
	return install, nil
}

func sourceOptions(rc config.Repository) source.Options {
	return source.Options{
		Token:        rc.Token,
		CACertFile:   rc.CACert,
		Insecure:     rc.Insecure,
		IdentityFile: rc.IdentityFile,
	}
}

func transferOptions(rc config.Repository) transfer.Options {
	return transfer.Options{
		Source:      sourceOptions(rc),
		SMBUser:     rc.SMBUser,
		SMBPassword: rc.SMBPassword,
	}
}
