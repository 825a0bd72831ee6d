package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile marks a bundle root inside an ambiguous archive.
const ManifestFile = "bottle.yml"

// FindBundleDir locates the bundle inside an extraction directory. The
// archive is expected to contain exactly one top-level directory; with
// several, the unique one containing the bundle manifest wins.
func FindBundleDir(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", fmt.Errorf("reading extraction directory: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(extractDir, e.Name()))
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("archive contains no directories; expected a top-level bundle directory")
	}
	if len(dirs) == 1 {
		return dirs[0], nil
	}

	var withManifest []string
	for _, d := range dirs {
		if _, err := os.Stat(filepath.Join(d, ManifestFile)); err == nil {
			withManifest = append(withManifest, d)
		}
	}
	if len(withManifest) == 1 {
		return withManifest[0], nil
	}
	return "", fmt.Errorf("cannot identify bundle directory in archive (%d top-level directories, %d contain %s)",
		len(dirs), len(withManifest), ManifestFile)
}
