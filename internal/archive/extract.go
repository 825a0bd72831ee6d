// Package archive unpacks, identifies, and writes the gzip-compressed tar
// bundles repositories publish.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// countingReader tracks compressed bytes consumed from the underlying
// file. Progress keyed off this avoids pre-scanning the member list,
// which would stall large archives before anything extracts.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Extract unpacks the archive at src into dest, reporting progress as
// compressed-bytes-consumed over the archive size. Entries that would
// escape dest or carry setuid/setgid bits are rejected. The published
// format is .tar.gz; zstd, xz, and bzip2 compressed tars are accepted by
// magic-byte sniffing.
func Extract(ctx context.Context, src, dest string, onProgress func(float64)) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("reading archive size: %w", err)
	}
	total := info.Size()
	if total <= 0 {
		total = 1
	}

	counter := &countingReader{r: file}
	reader, cleanup, err := decompressor(file, counter)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	tr := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target, err := safeTarget(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
			mode := header.FileInfo().Mode().Perm()
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
		case tar.TypeSymlink:
			if err := safeSymlinkTarget(dest, target, header.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("extracting %s: %w", header.Name, err)
			}
		}

		if onProgress != nil {
			onProgress(min(float64(counter.n)/float64(total), 1))
		}
	}
	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

// safeTarget joins name under dest, rejecting absolute names and any path
// that would escape the extraction directory.
func safeTarget(dest, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return target, nil
}

func safeSymlinkTarget(dest, linkPath, linkName string) error {
	if filepath.IsAbs(linkName) {
		return fmt.Errorf("archive symlink %q has an absolute target", linkName)
	}
	resolved := filepath.Join(filepath.Dir(linkPath), linkName)
	if resolved != dest && !strings.HasPrefix(resolved, dest+string(os.PathSeparator)) {
		return fmt.Errorf("archive symlink %q escapes the extraction directory", linkName)
	}
	return nil
}

// decompressor sniffs the magic bytes from file and wraps counter in the
// matching reader. counter must wrap file so compressed-byte progress
// stays accurate regardless of codec.
func decompressor(file *os.File, counter *countingReader) (io.Reader, func(), error) {
	header := make([]byte, 6)
	n, _ := io.ReadFull(file, header)
	header = header[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	switch {
	case n >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(counter)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, func() { gzr.Close() }, nil

	case n >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd:
		zr, err := zstd.NewReader(counter)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, func() { zr.Close() }, nil

	case n >= 6 && header[0] == 0xfd && header[1] == 0x37 && header[2] == 0x7a && header[3] == 0x58 && header[4] == 0x5a && header[5] == 0x00:
		xzr, err := xz.NewReader(counter)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, nil, nil

	case n >= 2 && header[0] == 0x42 && header[1] == 0x5a:
		return bzip2.NewReader(counter), nil, nil

	default:
		return nil, nil, fmt.Errorf("unrecognized archive format")
	}
}
