package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Backup archives bundleDir as a .tar.gz at destPath with a single
// top-level directory named after the bundle, so the result can be
// re-imported later. Progress is by file count. The partial archive is
// removed on cancellation or error.
func Backup(ctx context.Context, bundleDir, destPath string, onProgress func(float64)) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	var files []string
	err := filepath.WalkDir(bundleDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning bundle: %w", err)
	}
	total := max(len(files), 1)

	if err := writeBackup(ctx, bundleDir, destPath, files, total, onProgress); err != nil {
		os.Remove(destPath)
		return err
	}
	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

func writeBackup(ctx context.Context, bundleDir, destPath string, files []string, total int, onProgress func(float64)) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating backup archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	prefix := filepath.Base(bundleDir)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, bundleDir, prefix, path); err != nil {
			return err
		}
		if onProgress != nil && i%20 == 0 {
			onProgress(float64(i) / float64(total))
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing backup archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalizing backup archive: %w", err)
	}
	return out.Close()
}

func addFile(tw *tar.Writer, bundleDir, prefix, path string) error {
	rel, err := filepath.Rel(bundleDir, path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("backing up %s: %w", rel, err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("backing up %s: %w", rel, err)
	}
	header.Name = filepath.ToSlash(filepath.Join(prefix, rel))

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("backing up %s: %w", rel, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backing up %s: %w", rel, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("backing up %s: %w", rel, err)
	}
	return nil
}
