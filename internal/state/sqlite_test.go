package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *SQLiteState {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "state", "cellar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.RecordInstall("my-app", "my-app-2", "1.0", "main"))

	app, err := s.Get("my-app")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, "my-app", app.ID)
	assert.Equal(t, "my-app-2", app.BundleName)
	assert.Equal(t, "1.0", app.Version)
	assert.Equal(t, "main", app.RepoSource)
	assert.False(t, app.InstalledAt.IsZero())
	assert.Equal(t, app.InstalledAt, app.LastUpdated)
}

func TestGetMissing(t *testing.T) {
	s := newTestState(t)

	app, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, app)

	ok, err := s.IsInstalled("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordInstallUpsertKeepsInstalledAt(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.RecordInstall("my-app", "my-app", "1.0", "main"))
	first, err := s.Get("my-app")
	require.NoError(t, err)

	require.NoError(t, s.RecordInstall("my-app", "my-app", "2.0", "main"))
	second, err := s.Get("my-app")
	require.NoError(t, err)

	assert.Equal(t, "2.0", second.Version)
	assert.Equal(t, first.InstalledAt, second.InstalledAt)

	apps, err := s.List()
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestRemove(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.RecordInstall("my-app", "my-app", "1.0", "main"))
	require.NoError(t, s.Remove("my-app"))

	ok, err := s.IsInstalled("my-app")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOrder(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.RecordInstall("beta", "beta", "1.0", "main"))
	require.NoError(t, s.RecordInstall("alpha", "alpha", "1.0", "main"))

	apps, err := s.List()
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.False(t, apps[0].InstalledAt.After(apps[1].InstalledAt))
	if apps[0].InstalledAt.Equal(apps[1].InstalledAt) {
		// Same-second installs fall back to id order.
		assert.Equal(t, "alpha", apps[0].ID)
	}
}

func TestReopenPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cellar.db")

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.RecordInstall("my-app", "my-app", "1.0", "main"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.IsInstalled("my-app")
	require.NoError(t, err)
	assert.True(t, ok)
}
