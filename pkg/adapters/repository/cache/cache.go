// Package cache puts an in-process freecache in front of a SummaryStore.
// Summary rows are immutable, so a cached row never goes stale; only rows
// the backing store has returned or created are ever cached.
package cache

import (
	"context"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// Repository wraps a ports.Repository and serves summary reads from memory.
// Ledger calls pass straight through.
type Repository struct {
	ports.Repository
	cache  *freecache.Cache
	ttl    int
	logger zerolog.Logger
}

// New wraps repo. A sizeMB of zero or less disables caching and returns repo.
func New(repo ports.Repository, sizeMB, ttlSeconds int, logger zerolog.Logger) ports.Repository {
	if sizeMB <= 0 {
		logger.Info().Msg("summary cache disabled")
		return repo
	}
	logger.Info().Int("size_mb", sizeMB).Int("ttl_seconds", ttlSeconds).Msg("summary cache initialized")
	return &Repository{
		Repository: repo,
		cache:      freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:        ttlSeconds,
		logger:     logger,
	}
}

func (r *Repository) Get(ctx context.Context, fp string) (*domain.Summary, error) {
	if data, err := r.cache.Get([]byte(fp)); err == nil {
		var s domain.Summary
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		r.cache.Del([]byte(fp))
	}

	s, err := r.Repository.Get(ctx, fp)
	if err != nil || s == nil {
		return s, err
	}
	r.set(s)
	return s, nil
}

func (r *Repository) Insert(ctx context.Context, s *domain.Summary) (domain.InsertResult, error) {
	res, err := r.Repository.Insert(ctx, s)
	if err == nil && res == domain.Created {
		r.set(s)
	}
	return res, err
}

func (r *Repository) set(s *domain.Summary) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.cache.Set([]byte(s.Fingerprint), data, r.ttl); err != nil {
		r.logger.Debug().Err(err).Str("fingerprint", s.Fingerprint).Msg("summary not cached")
	}
}

// EntryCount reports how many summaries are held in memory.
func (r *Repository) EntryCount() int64 {
	return r.cache.EntryCount()
}
