// Package installer turns a catalogue entry plus a resolved archive
// location into a newly installed bundle directory.
package installer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teamcutter/cellar/internal/archive"
	"github.com/teamcutter/cellar/internal/domain"
	"github.com/teamcutter/cellar/internal/transfer"
)

// Phase names reported to the progress sink.
const (
	PhaseDownloading = "Downloading"
	PhaseVerifying   = "Verifying"
	PhaseExtracting  = "Extracting"
	PhaseInstalling  = "Installing"
	PhaseDone        = "Done"
)

type Installer struct {
	acquirer *transfer.Acquirer
	log      *zap.Logger
}

func New(acquirer *transfer.Acquirer, log *zap.Logger) *Installer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{acquirer: acquirer, log: log}
}

// Install runs the pipeline: acquire the archive, verify it when the
// entry carries a hash, extract, identify the bundle directory, and copy
// it under destRoot with a collision-safe name. The chosen name is
// returned; recording the install is the caller's job. Cancellation
// surfaces as context.Canceled and cleans up exactly like a failure.
func (i *Installer) Install(ctx context.Context, entry domain.Entry, archiveURI, destRoot string, progress domain.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	session, err := transfer.NewSession(progress)
	if err != nil {
		return "", err
	}
	defer session.Close()

	progress.Report(PhaseDownloading, 0)
	archivePath, err := i.acquirer.Acquire(ctx, archiveURI, session.Path("archive.tar.gz"), entry.ArchiveSize,
		transfer.Stage(progress, PhaseDownloading, 0, 1))
	if err != nil {
		return "", err
	}

	if entry.ArchiveSHA256 != "" {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		progress.Report(PhaseVerifying, 0)
		if err := transfer.VerifySHA256(ctx, archivePath, entry.ArchiveSHA256); err != nil {
			return "", err
		}
		progress.Report(PhaseVerifying, 1)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	progress.Report(PhaseExtracting, 0)
	extractDir := session.Path("extracted")
	if err := os.Mkdir(extractDir, 0755); err != nil {
		return "", fmt.Errorf("creating extraction directory: %w", err)
	}
	if err := archive.Extract(ctx, archivePath, extractDir, transfer.Stage(progress, PhaseExtracting, 0, 1)); err != nil {
		return "", err
	}

	bundleSrc, err := archive.FindBundleDir(extractDir)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	progress.Report(PhaseInstalling, 0)
	name, err := PlacementName(destRoot, entry.ID)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(destRoot, name)
	if err := copyTree(ctx, bundleSrc, dest); err != nil {
		// Never leave a half-installed bundle behind.
		os.RemoveAll(dest)
		return "", err
	}

	i.log.Info("installed bundle",
		zap.String("id", entry.ID),
		zap.String("bundle", name),
		zap.String("version", entry.Version))
	progress.Report(PhaseInstalling, 1)
	progress.Report(PhaseDone, 1)
	return name, nil
}

// PlacementName picks a destination directory name for id that does not
// collide with anything under destRoot: id itself when free, else the
// smallest free id-2, id-3, ...
func PlacementName(destRoot, id string) (string, error) {
	if _, err := os.Stat(destRoot); err != nil {
		return "", fmt.Errorf("destination root %s: %w", destRoot, err)
	}
	if !exists(filepath.Join(destRoot, id)) {
		return id, nil
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s-%d", id, n)
		if !exists(filepath.Join(destRoot, name)) {
			return name, nil
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// copyTree copies src into dst (which must not exist yet), preserving
// file modes and symlinks, checking cancellation per entry.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
