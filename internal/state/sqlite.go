package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teamcutter/cellar/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS installed (
    id                TEXT PRIMARY KEY,
    bundle_name       TEXT NOT NULL,
    installed_version TEXT NOT NULL,
    installed_at      TEXT NOT NULL,
    last_updated      TEXT NOT NULL,
    repo_source       TEXT NOT NULL DEFAULT ''
);
`

// SQLiteState records which apps are installed, under what bundle name
// and at which version.
type SQLiteState struct {
	mu sync.RWMutex
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteState, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteState{db: db}, nil
}

// RecordInstall upserts the record for id. A fresh install sets both
// timestamps; re-recording an existing id keeps installed_at and bumps
// last_updated.
func (s *SQLiteState) RecordInstall(id, bundleName, version, repoSource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO installed (id, bundle_name, installed_version, installed_at, last_updated, repo_source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    bundle_name       = excluded.bundle_name,
		    installed_version = excluded.installed_version,
		    last_updated      = excluded.last_updated,
		    repo_source       = excluded.repo_source`,
		id, bundleName, version, now, now, repoSource)
	if err != nil {
		return fmt.Errorf("failed to record install of %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteState) Get(id string) (*domain.InstalledApp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var app domain.InstalledApp
	var installedAt, lastUpdated string
	err := s.db.QueryRow(`
		SELECT id, bundle_name, installed_version, installed_at, last_updated, repo_source
		FROM installed WHERE id = ?`, id).Scan(
		&app.ID, &app.BundleName, &app.Version, &installedAt, &lastUpdated, &app.RepoSource)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	app.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
	app.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &app, nil
}

func (s *SQLiteState) IsInstalled(id string) (bool, error) {
	app, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return app != nil, nil
}

func (s *SQLiteState) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM installed WHERE id = ?", id)
	return err
}

// List returns every installed record, oldest install first.
func (s *SQLiteState) List() ([]*domain.InstalledApp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, bundle_name, installed_version, installed_at, last_updated, repo_source
		FROM installed ORDER BY installed_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*domain.InstalledApp
	for rows.Next() {
		var app domain.InstalledApp
		var installedAt, lastUpdated string
		if err := rows.Scan(&app.ID, &app.BundleName, &app.Version,
			&installedAt, &lastUpdated, &app.RepoSource); err != nil {
			return nil, err
		}
		app.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
		app.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		apps = append(apps, &app)
	}

	return apps, rows.Err()
}

func (s *SQLiteState) Close() error {
	return s.db.Close()
}
