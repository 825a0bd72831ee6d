package updater

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamcutter/cellar/internal/domain"
	"github.com/teamcutter/cellar/internal/transfer"
)

// writeBundleArchive builds a tar.gz holding one top-level bundle
// directory and returns its path, size and hex digest.
func writeBundleArchive(t *testing.T, bundleName string, files map[string]string) (string, int64, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     bundleName + "/",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}))
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: bundleName + "/" + name,
			Mode: 0644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	return path, int64(len(raw)), hex.EncodeToString(sum[:])
}

func newTestUpdater(t *testing.T) *Updater {
	t.Helper()
	acquirer, err := transfer.NewAcquirer(transfer.Options{})
	require.NoError(t, err)
	return New(acquirer, &Overlay{}, nil)
}

type phaseLog struct {
	phases    []string
	fractions []float64
}

func (l *phaseLog) sink(phase string, fraction float64) {
	if n := len(l.phases); n == 0 || l.phases[n-1] != phase {
		l.phases = append(l.phases, phase)
	}
	l.fractions = append(l.fractions, fraction)
}

func TestUpdatePreservesUserData(t *testing.T) {
	archivePath, size, digest := writeBundleArchive(t, "my-app", map[string]string{
		"bottle.yml":                          "Name: my-app",
		"drive_c/Program Files/g/game.exe":    "v2",
		"drive_c/users/me/Documents/save.dat": "fresh defaults",
	})

	bundleDir := filepath.Join(t.TempDir(), "my-app")
	writeFile(t, bundleDir, "drive_c/Program Files/g/game.exe", "v1")
	writeFile(t, bundleDir, "drive_c/users/me/Documents/save.dat", "hours of progress")

	entry := domain.Entry{ID: "my-app", Name: "My App", Version: "2.0", Category: "Games",
		ArchiveSize: size, ArchiveSHA256: digest}

	var log phaseLog
	err := newTestUpdater(t).Update(context.Background(), entry, archivePath, bundleDir, Options{}, log.sink)
	require.NoError(t, err)

	assert.Equal(t, "v2", readFile(t, bundleDir, "drive_c/Program Files/g/game.exe"))
	assert.Equal(t, "hours of progress", readFile(t, bundleDir, "drive_c/users/me/Documents/save.dat"))
	assert.Equal(t, "Name: my-app", readFile(t, bundleDir, "bottle.yml"))

	assert.Equal(t, []string{PhaseDownloading, PhaseVerifying, PhaseExtracting, PhaseUpdating, PhaseDone}, log.phases)
	for i := 1; i < len(log.fractions); i++ {
		assert.GreaterOrEqual(t, log.fractions[i], log.fractions[i-1])
	}
	assert.Equal(t, 1.0, log.fractions[len(log.fractions)-1])
}

func TestUpdateWithBackup(t *testing.T) {
	archivePath, size, _ := writeBundleArchive(t, "my-app", map[string]string{
		"bottle.yml": "Name: my-app",
	})
	bundleDir := filepath.Join(t.TempDir(), "my-app")
	writeFile(t, bundleDir, "drive_c/app.exe", "v1")

	backupPath := filepath.Join(t.TempDir(), "backups", "my-app.tar.gz")
	entry := domain.Entry{ID: "my-app", Name: "My App", Version: "2.0", Category: "Games", ArchiveSize: size}

	var log phaseLog
	err := newTestUpdater(t).Update(context.Background(), entry, archivePath, bundleDir, Options{BackupPath: backupPath}, log.sink)
	require.NoError(t, err)

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Equal(t, PhaseBackingUp, log.phases[0])
}

func TestUpdateChecksumMismatchLeavesBundleUntouched(t *testing.T) {
	archivePath, size, _ := writeBundleArchive(t, "my-app", map[string]string{
		"drive_c/app.exe": "v2",
	})
	bundleDir := filepath.Join(t.TempDir(), "my-app")
	writeFile(t, bundleDir, "drive_c/app.exe", "v1")

	entry := domain.Entry{ID: "my-app", Name: "My App", Version: "2.0", Category: "Games",
		ArchiveSize: size, ArchiveSHA256: "0000000000000000000000000000000000000000000000000000000000000000"}

	err := newTestUpdater(t).Update(context.Background(), entry, archivePath, bundleDir, Options{}, nil)
	var mismatch *transfer.ChecksumError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "v1", readFile(t, bundleDir, "drive_c/app.exe"))
}

func TestUpdateMissingBundleDir(t *testing.T) {
	entry := domain.Entry{ID: "my-app", Name: "My App", Version: "2.0", Category: "Games"}
	err := newTestUpdater(t).Update(context.Background(), entry, "whatever.tar.gz",
		filepath.Join(t.TempDir(), "absent"), Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestUpdateCancelled(t *testing.T) {
	archivePath, size, _ := writeBundleArchive(t, "my-app", map[string]string{
		"drive_c/app.exe": "v2",
	})
	bundleDir := filepath.Join(t.TempDir(), "my-app")
	writeFile(t, bundleDir, "drive_c/app.exe", "v1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry := domain.Entry{ID: "my-app", Name: "My App", Version: "2.0", Category: "Games", ArchiveSize: size}
	err := newTestUpdater(t).Update(ctx, entry, archivePath, bundleDir, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "v1", readFile(t, bundleDir, "drive_c/app.exe"))
}
