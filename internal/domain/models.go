package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// UpdateStrategy controls how an installed bundle is brought up to date.
// "safe" overlays the new archive without touching user data; "full"
// signals that the publisher expects a clean reinstall.
type UpdateStrategy string

const (
	UpdateSafe UpdateStrategy = "safe"
	UpdateFull UpdateStrategy = "full"
)

// BuiltWith records the component versions a bundle was packaged against.
type BuiltWith struct {
	Runner string `json:"runner"`
	DXVK   string `json:"dxvk,omitempty"`
	VKD3D  string `json:"vkd3d,omitempty"`
}

// Entry is one record from a repository's catalogue.json.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Category    string `json:"category"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Developer   string `json:"developer,omitempty"`

	Icon        string   `json:"icon,omitempty"`
	Cover       string   `json:"cover,omitempty"`
	Hero        string   `json:"hero,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	Changelog   string   `json:"changelog,omitempty"`

	Archive        string         `json:"archive,omitempty"`
	ArchiveSize    int64          `json:"archive_size,omitempty"`
	ArchiveSHA256  string         `json:"archive_sha256,omitempty"`
	UpdateStrategy UpdateStrategy `json:"update_strategy,omitempty"`
	BuiltWith      BuiltWith      `json:"built_with,omitzero"`
}

// ParseEntry decodes a single catalogue record. A missing required field
// or an unknown update strategy rejects that record only.
func ParseEntry(raw []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	required := []struct{ field, value string }{
		{"id", e.ID},
		{"name", e.Name},
		{"version", e.Version},
		{"category", e.Category},
	}
	for _, r := range required {
		if r.value == "" {
			return Entry{}, fmt.Errorf("missing required field %q", r.field)
		}
	}
	switch e.UpdateStrategy {
	case "":
		e.UpdateStrategy = UpdateSafe
	case UpdateSafe, UpdateFull:
	default:
		return Entry{}, fmt.Errorf("unknown update_strategy %q", e.UpdateStrategy)
	}
	return e, nil
}

// InstalledApp is one row of the installed-record store.
type InstalledApp struct {
	ID          string
	BundleName  string
	Version     string
	InstalledAt time.Time
	LastUpdated time.Time
	RepoSource  string
}
