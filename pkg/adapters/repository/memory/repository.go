// Package memory is an in-process repository for tests and local runs.
// Its mutex is the store's own uniqueness primitive; callers never lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

type Repository struct {
	mu        sync.RWMutex
	nextID    int64
	summaries map[string]*domain.Summary
	events    []domain.UsageEvent
}

func NewRepository() *Repository {
	return &Repository{
		summaries: make(map[string]*domain.Summary),
	}
}

func (r *Repository) Get(ctx context.Context, fp string) (*domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.summaries[fp]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate the stored record.
	c := *s
	return &c, nil
}

func (r *Repository) Insert(ctx context.Context, summary *domain.Summary) (domain.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.summaries[summary.Fingerprint]; exists {
		return domain.AlreadyExists, nil
	}
	r.nextID++
	summary.ID = r.nextID
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	c := *summary
	r.summaries[summary.Fingerprint] = &c
	return domain.Created, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Summary, 0, len(r.summaries))
	for _, s := range r.summaries {
		c := *s
		c.Views = r.countLocked(s.Fingerprint, domain.EventView)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Summary, 0, len(r.summaries))
	for _, s := range r.summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.GlobalStats{TotalSummaries: int64(len(r.summaries))}
	for _, e := range r.events {
		if e.Kind == domain.EventView {
			stats.TotalViews++
		}
	}
	stats.TotalReuses = max(stats.TotalViews-stats.TotalSummaries, 0)
	return stats, nil
}

func (r *Repository) Append(ctx context.Context, event *domain.UsageEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.summaries[event.Fingerprint]; !ok {
		return domain.ErrSummaryNotFound
	}
	event.ID = int64(len(r.events) + 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *Repository) CountViews(ctx context.Context, fp string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(fp, domain.EventView), nil
}

func (r *Repository) Stats(ctx context.Context, fp string) (*domain.SummaryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.SummaryStats{
		Fingerprint: fp,
		Views:       r.countLocked(fp, domain.EventView),
		Shares:      r.countLocked(fp, domain.EventShare),
		DailyViews:  []domain.DailyCount{},
	}
	daily := make(map[string]int64)
	for _, e := range r.events {
		if e.Fingerprint == fp && e.Kind == domain.EventView {
			daily[e.CreatedAt.UTC().Format("2006-01-02")]++
		}
	}
	for date, count := range daily {
		stats.DailyViews = append(stats.DailyViews, domain.DailyCount{Date: date, Count: count})
	}
	sort.Slice(stats.DailyViews, func(i, j int) bool { return stats.DailyViews[i].Date > stats.DailyViews[j].Date })
	if len(stats.DailyViews) > 30 {
		stats.DailyViews = stats.DailyViews[:30]
	}
	return stats, nil
}

func (r *Repository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *Repository) Close() error { return nil }

func (r *Repository) countLocked(fp string, kind domain.EventKind) int64 {
	var n int64
	for _, e := range r.events {
		if e.Fingerprint == fp && e.Kind == kind {
			n++
		}
	}
	return n
}

var _ ports.Repository = (*Repository)(nil)
