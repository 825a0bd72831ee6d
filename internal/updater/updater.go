// Package updater brings an already-installed bundle up to date by
// overlaying a new archive onto it without destroying user data.
package updater

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/teamcutter/cellar/internal/archive"
	"github.com/teamcutter/cellar/internal/domain"
	"github.com/teamcutter/cellar/internal/transfer"
)

// Phase names reported to the progress sink.
const (
	PhaseBackingUp   = "Backing up"
	PhaseDownloading = "Downloading"
	PhaseVerifying   = "Verifying"
	PhaseExtracting  = "Extracting"
	PhaseUpdating    = "Updating"
	PhaseDone        = "Done"
)

// Options selects the optional phases of one update call.
type Options struct {
	// BackupPath, when set, archives the current bundle there before
	// anything else happens.
	BackupPath string
}

type Updater struct {
	acquirer *transfer.Acquirer
	overlay  *Overlay
	log      *zap.Logger
}

func New(acquirer *transfer.Acquirer, overlay *Overlay, log *zap.Logger) *Updater {
	if overlay == nil {
		overlay = NewOverlay()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Updater{acquirer: acquirer, overlay: overlay, log: log}
}

// Update overlays the archive at archiveURI onto bundleDir. The phases
// share one continuous 0→1 progress sweep; the backup slice exists only
// when a backup was requested. Destination files are never deleted, and
// user-data paths are never overwritten.
func (u *Updater) Update(ctx context.Context, entry domain.Entry, archiveURI, bundleDir string, opts Options, progress domain.ProgressFunc) error {
	if info, err := os.Stat(bundleDir); err != nil || !info.IsDir() {
		return fmt.Errorf("bundle directory %s does not exist", bundleDir)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Fraction bands shift when the backup phase is present.
	hasBackup := opts.BackupPath != ""
	dlLo, dlHi := 0.00, 0.50
	if hasBackup {
		dlLo, dlHi = 0.20, 0.60
	}
	verHi := dlHi + 0.05
	extHi := verHi + 0.15

	if hasBackup {
		progress.Report(PhaseBackingUp, 0)
		if err := archive.Backup(ctx, bundleDir, opts.BackupPath, transfer.Stage(progress, PhaseBackingUp, 0, 0.20)); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	session, err := transfer.NewSession(progress)
	if err != nil {
		return err
	}
	defer session.Close()

	progress.Report(PhaseDownloading, dlLo)
	archivePath, err := u.acquirer.Acquire(ctx, archiveURI, session.Path("archive.tar.gz"), entry.ArchiveSize,
		transfer.Stage(progress, PhaseDownloading, dlLo, dlHi))
	if err != nil {
		return err
	}

	if entry.ArchiveSHA256 != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress.Report(PhaseVerifying, dlHi)
		if err := transfer.VerifySHA256(ctx, archivePath, entry.ArchiveSHA256); err != nil {
			return err
		}
		progress.Report(PhaseVerifying, verHi)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	progress.Report(PhaseExtracting, verHi)
	extractDir := session.Path("extracted")
	if err := os.Mkdir(extractDir, 0755); err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}
	if err := archive.Extract(ctx, archivePath, extractDir, transfer.Stage(progress, PhaseExtracting, verHi, extHi)); err != nil {
		return err
	}
	bundleSrc, err := archive.FindBundleDir(extractDir)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	progress.Report(PhaseUpdating, extHi)
	if err := u.overlay.Merge(ctx, bundleSrc, bundleDir, transfer.Stage(progress, PhaseUpdating, extHi, 1)); err != nil {
		return err
	}

	u.log.Info("updated bundle",
		zap.String("id", entry.ID),
		zap.String("bundle", bundleDir),
		zap.String("version", entry.Version))
	progress.Report(PhaseDone, 1)
	return nil
}
