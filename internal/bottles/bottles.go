// Package bottles locates the active Bottles installation and builds the
// bottles-cli invocation that works from the current environment.
package bottles

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// Variant says how the detected Bottles installation was found.
type Variant string

const (
	VariantFlatpak Variant = "flatpak"
	VariantNative  Variant = "native"
	VariantCustom  Variant = "custom"
)

const flatpakID = "com.usebottles.bottles"

// flatpakInfoPath exists only inside a Flatpak sandbox.
const flatpakInfoPath = "/.flatpak-info"

// Install describes a detected Bottles installation. DataPath is the
// bottles/ directory new bundles are placed into; CLI is the fully
// resolved base argv for bottles-cli.
type Install struct {
	DataPath string
	Variant  Variant
	CLI      []string
}

// Command builds an exec.Cmd appending args to the resolved bottles-cli
// base argv.
func (i *Install) Command(ctx context.Context, args ...string) *exec.Cmd {
	argv := append(append([]string{}, i.CLI...), args...)
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// Sandboxed reports whether this process runs inside a Flatpak sandbox.
// Calls to host binaries must then go through flatpak-spawn.
func Sandboxed() bool {
	_, err := os.Stat(flatpakInfoPath)
	return err == nil
}

// Detect finds the active Bottles installation. An overridePath, when
// non-empty, is used instead of auto-detection but must still exist.
// Otherwise the Flatpak data directory is preferred over the native one.
// Returns nil when no installation is found.
func Detect(overridePath string) *Install {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return detect(overridePath, home, Sandboxed())
}

func detect(overridePath, home string, sandboxed bool) *Install {
	if overridePath != "" {
		if !isDir(overridePath) {
			return nil
		}
		return &Install{
			DataPath: overridePath,
			Variant:  VariantCustom,
			CLI:      buildCLI(false, sandboxed),
		}
	}

	flatpakData := filepath.Join(home, ".var", "app", flatpakID, "data", "bottles", "bottles")
	if isDir(flatpakData) {
		return &Install{
			DataPath: flatpakData,
			Variant:  VariantFlatpak,
			CLI:      buildCLI(true, sandboxed),
		}
	}

	nativeData := filepath.Join(home, ".local", "share", "bottles", "bottles")
	if isDir(nativeData) {
		return &Install{
			DataPath: nativeData,
			Variant:  VariantNative,
			CLI:      buildCLI(false, sandboxed),
		}
	}

	return nil
}

// buildCLI resolves the bottles-cli argv. The Flatpak edition of Bottles
// does not put bottles-cli on PATH, and a sandboxed caller must escape
// its own sandbox through flatpak-spawn first.
func buildCLI(flatpakBottles, sandboxed bool) []string {
	var cmd []string
	if sandboxed {
		cmd = append(cmd, "flatpak-spawn", "--host")
	}
	if flatpakBottles {
		cmd = append(cmd, "flatpak", "run", "--command=bottles-cli", flatpakID)
	} else {
		cmd = append(cmd, "bottles-cli")
	}
	return cmd
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
