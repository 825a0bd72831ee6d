// Package repo loads catalogues from configured repositories and resolves
// per-entry asset locations.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teamcutter/cellar/internal/domain"
	"github.com/teamcutter/cellar/internal/source"
)

// CatalogueFile is the document every repository serves at its root.
const CatalogueFile = "catalogue.json"

// BaseCategories are always present, merged with any the catalogue
// declares.
var BaseCategories = []string{"Games", "Productivity", "Graphics", "Utility"}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true, ".webp": true, ".gif": true,
}

// catalogueDoc is the wrapped catalogue form; a bare array is also
// accepted.
type catalogueDoc struct {
	FormatVersion int               `json:"format_version"`
	GeneratedAt   string            `json:"generated_at"`
	Categories    []string          `json:"categories"`
	Apps          []json.RawMessage `json:"apps"`
}

// Repository is one configured catalogue source. It owns a single fetcher
// chosen at construction from the URI scheme.
type Repository struct {
	name    string
	uri     string
	fetcher source.Fetcher
	log     *zap.Logger

	mu       sync.Mutex
	cacheDir string // lazily created per-session cache for HTTP image assets
}

func New(name, uri string, opts source.Options, log *zap.Logger) (*Repository, error) {
	fetcher, err := source.Parse(uri, opts)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" {
		name = uri
	}
	return &Repository{name: name, uri: uri, fetcher: fetcher, log: log}, nil
}

func (r *Repository) Name() string { return r.name }
func (r *Repository) URI() string  { return r.uri }

// Writable reports whether apps can be published back to this repository.
// Only HTTP(S) transports are read-only.
func (r *Repository) Writable() bool { return r.fetcher.Writable() }

// FetchCatalogue reads and parses catalogue.json. Individual malformed
// records are logged and skipped rather than failing the whole catalogue.
func (r *Repository) FetchCatalogue(ctx context.Context) ([]domain.Entry, error) {
	raws, _, err := r.fetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(raws))
	for _, raw := range raws {
		entry, err := domain.ParseEntry(raw)
		if err != nil {
			r.log.Warn("skipping malformed catalogue entry",
				zap.String("repo", r.name), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	r.log.Info("loaded catalogue", zap.String("repo", r.name), zap.Int("entries", len(entries)))
	return entries, nil
}

// Categories returns the distinct categories for this repository: the base
// set, any declared by the catalogue, and any present on entries.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	raws, declared, err := r.fetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	categories := make([]string, 0, len(BaseCategories))
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	for _, c := range BaseCategories {
		add(c)
	}
	for _, c := range declared {
		add(c)
	}
	var extra []string
	for _, raw := range raws {
		if entry, err := domain.ParseEntry(raw); err == nil && !seen[entry.Category] {
			seen[entry.Category] = true
			extra = append(extra, entry.Category)
		}
	}
	sort.Strings(extra)
	return append(categories, extra...), nil
}

func (r *Repository) fetchRaw(ctx context.Context) (records []json.RawMessage, categories []string, err error) {
	data, err := r.fetcher.Fetch(ctx, CatalogueFile)
	if err != nil {
		return nil, nil, err
	}

	var bare []json.RawMessage
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil, nil
	}
	var doc catalogueDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid catalogue in %s: %w", r.name, err)
	}
	return doc.Apps, doc.Categories, nil
}

// ResolveAssetURI resolves a repo-relative asset path to something the
// caller can open directly. For HTTP repositories, image assets are
// downloaded once into a per-session cache because display code cannot
// attach this repository's auth headers to a bare URL; archives stay as
// URIs so the installer's own authenticated transfer handles them.
func (r *Repository) ResolveAssetURI(ctx context.Context, relPath string) (string, error) {
	if _, isHTTP := r.fetcher.(*source.HTTPFetcher); !isHTTP || !imageExtensions[strings.ToLower(path.Ext(relPath))] {
		return r.fetcher.DisplayURI(relPath), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheDir == "" {
		dir, err := os.MkdirTemp("", "cellar-assets-")
		if err != nil {
			return "", fmt.Errorf("creating asset cache: %w", err)
		}
		r.cacheDir = dir
	}

	cached := filepath.Join(r.cacheDir, filepath.FromSlash(relPath))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	data, err := r.fetcher.Fetch(ctx, relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cached), 0755); err != nil {
		return "", fmt.Errorf("writing asset cache: %w", err)
	}
	if err := os.WriteFile(cached, data, 0644); err != nil {
		return "", fmt.Errorf("writing asset cache: %w", err)
	}
	return cached, nil
}

// Close removes the session asset cache, if one was created.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheDir != "" {
		os.RemoveAll(r.cacheDir)
		r.cacheDir = ""
	}
}
