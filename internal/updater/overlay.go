package updater

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Overlay copies every non-excluded file from an extracted bundle onto an
// existing installation without ever deleting a destination file. The
// system rsync is used when present; a pure-Go copy with identical
// exclusion semantics covers locked-down environments without it.
type Overlay struct {
	rsyncPath string
}

func NewOverlay() *Overlay {
	path, err := exec.LookPath("rsync")
	if err != nil {
		path = ""
	}
	return &Overlay{rsyncPath: path}
}

// Merge overlays src onto dst. Progress is by file count and only
// available on the fallback path; rsync reports start and end.
func (o *Overlay) Merge(ctx context.Context, src, dst string, onProgress func(float64)) error {
	if o.rsyncPath != "" {
		if err := o.mergeRsync(ctx, src, dst); err != nil {
			return err
		}
	} else if err := mergeFiles(ctx, src, dst, onProgress); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

func (o *Overlay) mergeRsync(ctx context.Context, src, dst string) error {
	// Archive mode, add/update only. rsync never deletes unless told to,
	// and it is never told to.
	args := []string{"-a"}
	for _, pattern := range rsyncExcludes() {
		args = append(args, "--exclude", pattern)
	}
	// Trailing slash on src copies contents, not the directory itself.
	args = append(args, src+string(os.PathSeparator), dst+string(os.PathSeparator))

	cmd := exec.CommandContext(ctx, o.rsyncPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("rsync failed: %w: %s", err, msg)
		}
		return fmt.Errorf("rsync failed: %w", err)
	}
	return nil
}

// mergeFiles is the pure-Go overlay with the same exclusion semantics as
// the rsync path.
func mergeFiles(ctx context.Context, src, dst string, onProgress func(float64)) error {
	var files []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning update source: %w", err)
	}
	total := max(len(files), 1)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if Excluded(rel) {
			continue
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("updating %s: %w", rel, err)
		}
		if err := overlayFile(path, target); err != nil {
			return fmt.Errorf("updating %s: %w", rel, err)
		}
		if onProgress != nil && i%50 == 0 {
			onProgress(float64(i) / float64(total))
		}
	}
	return nil
}

func overlayFile(src, dst string) error {
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
