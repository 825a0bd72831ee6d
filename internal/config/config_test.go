package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxParallel)
	assert.Empty(t, cfg.Repositories)

	_, err = os.Stat(configPath())
	assert.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.BottlesDataPath = "/srv/bottles"
	require.NoError(t, cfg.AddRepo(Repository{
		Name:  "home-nas",
		URI:   "https://nas.home.arpa/cellar",
		Token: "secret",
	}))
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/bottles", loaded.BottlesDataPath)
	require.Len(t, loaded.Repositories, 1)
	assert.Equal(t, "home-nas", loaded.Repositories[0].Name)
	assert.Equal(t, "secret", loaded.Repositories[0].Token)
}

func TestAddRepoDuplicate(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.AddRepo(Repository{Name: "a", URI: "file:///r"}))
	err := cfg.AddRepo(Repository{Name: "a", URI: "file:///other"})
	assert.ErrorContains(t, err, "already exists")
}

func TestRemoveRepo(t *testing.T) {
	cfg := &Config{Repositories: []Repository{{Name: "a"}, {Name: "b"}}}
	require.NoError(t, cfg.RemoveRepo("a"))
	require.Len(t, cfg.Repositories, 1)
	assert.Equal(t, "b", cfg.Repositories[0].Name)

	assert.ErrorContains(t, cfg.RemoveRepo("missing"), "not found")
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "cellar", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestMaxParallelFloor(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "cellar", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("max_parallel = 0\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxParallel)
}
