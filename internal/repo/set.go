package repo

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamcutter/cellar/internal/domain"
)

// Set merges the catalogues of several repositories. When two
// repositories publish the same app id, the later-configured repository
// wins.
type Set struct {
	repos       []*Repository
	maxParallel int
	log         *zap.Logger
}

func NewSet(repos []*Repository, maxParallel int, log *zap.Logger) *Set {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Set{repos: repos, maxParallel: maxParallel, log: log}
}

func (s *Set) Repositories() []*Repository { return s.repos }

// ByID finds the last-configured repository whose catalogue carries id.
func (s *Set) ByID(ctx context.Context, id string) (*Repository, domain.Entry, bool) {
	catalogues := s.fetchAll(ctx)
	for i := len(s.repos) - 1; i >= 0; i-- {
		for _, entry := range catalogues[i] {
			if entry.ID == id {
				return s.repos[i], entry, true
			}
		}
	}
	return nil, domain.Entry{}, false
}

// FetchAll loads every catalogue concurrently and merges them. A
// repository that fails to load is logged and skipped; only a fully
// unreachable set is an error for the caller to notice via the empty
// result.
func (s *Set) FetchAll(ctx context.Context) []domain.Entry {
	catalogues := s.fetchAll(ctx)

	// Merge in configuration order so later repositories override.
	merged := make(map[string]int) // id -> index into result
	var result []domain.Entry
	for _, entries := range catalogues {
		for _, entry := range entries {
			if i, ok := merged[entry.ID]; ok {
				result[i] = entry
				continue
			}
			merged[entry.ID] = len(result)
			result = append(result, entry)
		}
	}
	return result
}

func (s *Set) fetchAll(ctx context.Context) [][]domain.Entry {
	catalogues := make([][]domain.Entry, len(s.repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, r := range s.repos {
		i, r := i, r
		g.Go(func() error {
			entries, err := r.FetchCatalogue(gctx)
			if err != nil {
				s.log.Warn("could not load catalogue",
					zap.String("repo", r.Name()), zap.Error(err))
				return nil
			}
			catalogues[i] = entries
			return nil
		})
	}
	_ = g.Wait()
	return catalogues
}
