package bottles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	tests := []struct {
		name           string
		flatpakBottles bool
		sandboxed      bool
		want           []string
	}{
		{"native unsandboxed", false, false, []string{"bottles-cli"}},
		{"native sandboxed", false, true, []string{"flatpak-spawn", "--host", "bottles-cli"}},
		{"flatpak unsandboxed", true, false,
			[]string{"flatpak", "run", "--command=bottles-cli", "com.usebottles.bottles"}},
		{"flatpak sandboxed", true, true,
			[]string{"flatpak-spawn", "--host", "flatpak", "run", "--command=bottles-cli", "com.usebottles.bottles"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCLI(tt.flatpakBottles, tt.sandboxed))
		})
	}
}

func TestDetectOverride(t *testing.T) {
	dir := t.TempDir()

	install := detect(dir, "/nonexistent-home", true)
	require.NotNil(t, install)
	assert.Equal(t, dir, install.DataPath)
	assert.Equal(t, VariantCustom, install.Variant)
	assert.Equal(t, []string{"flatpak-spawn", "--host", "bottles-cli"}, install.CLI)
}

func TestDetectOverrideMissing(t *testing.T) {
	assert.Nil(t, detect(filepath.Join(t.TempDir(), "absent"), "/nonexistent-home", false))
}

func TestDetectPrefersFlatpak(t *testing.T) {
	home := t.TempDir()
	flatpakData := filepath.Join(home, ".var", "app", "com.usebottles.bottles", "data", "bottles", "bottles")
	nativeData := filepath.Join(home, ".local", "share", "bottles", "bottles")
	require.NoError(t, os.MkdirAll(flatpakData, 0755))
	require.NoError(t, os.MkdirAll(nativeData, 0755))

	install := detect("", home, false)
	require.NotNil(t, install)
	assert.Equal(t, flatpakData, install.DataPath)
	assert.Equal(t, VariantFlatpak, install.Variant)
	assert.Equal(t, []string{"flatpak", "run", "--command=bottles-cli", "com.usebottles.bottles"}, install.CLI)
}

func TestDetectNative(t *testing.T) {
	home := t.TempDir()
	nativeData := filepath.Join(home, ".local", "share", "bottles", "bottles")
	require.NoError(t, os.MkdirAll(nativeData, 0755))

	install := detect("", home, false)
	require.NotNil(t, install)
	assert.Equal(t, VariantNative, install.Variant)
	assert.Equal(t, []string{"bottles-cli"}, install.CLI)
}

func TestDetectNothing(t *testing.T) {
	assert.Nil(t, detect("", t.TempDir(), false))
}

func TestCommand(t *testing.T) {
	install := &Install{CLI: []string{"flatpak-spawn", "--host", "bottles-cli"}}
	cmd := install.Command(context.Background(), "list", "bottles")
	assert.Equal(t, []string{"flatpak-spawn", "--host", "bottles-cli", "list", "bottles"}, cmd.Args)
}
