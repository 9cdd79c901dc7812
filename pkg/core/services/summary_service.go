package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/core/fingerprint"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// SummaryService is the cache coordinator. It holds no mutable state of its
// own; at-most-once creation rests on the store's unique insert.
type SummaryService struct {
	store      ports.SummaryStore
	ledger     ports.UsageLedger
	summarizer ports.Summarizer
	metrics    ports.Metrics
	logger     zerolog.Logger
	ipSalt     string
	now        func() time.Time
}

type Option func(*SummaryService)

func WithIPSalt(salt string) Option {
	return func(s *SummaryService) { s.ipSalt = salt }
}

func WithClock(now func() time.Time) Option {
	return func(s *SummaryService) { s.now = now }
}

func NewSummaryService(store ports.SummaryStore, ledger ports.UsageLedger, summarizer ports.Summarizer, metrics ports.Metrics, logger zerolog.Logger, opts ...Option) *SummaryService {
	s := &SummaryService{
		store:      store,
		ledger:     ledger,
		summarizer: summarizer,
		metrics:    metrics,
		logger:     logger.With().Str("component", "summary_service").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the stored summary for req.URL, generating and storing it
// first on a miss, then records one view and reads the view count.
func (s *SummaryService) Resolve(ctx context.Context, req ports.ResolveRequest) (*domain.Resolution, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	fp, err := fingerprint.Of(req.URL)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Str("fingerprint", fp).Logger()

	summary, err := s.store.Get(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: get summary: %w", domain.ErrStorageFailure, err)
	}

	cached := summary != nil
	if cached {
		s.metrics.IncSummaryCacheHit()
	} else {
		s.metrics.IncSummaryCacheMiss()
		summary, err = s.create(ctx, fp, req)
		if err != nil {
			return nil, err
		}
	}

	event := &domain.UsageEvent{
		Fingerprint: fp,
		Kind:        domain.EventView,
		UserAgent:   req.UserAgent,
		IPHash:      s.hashIP(req.IP),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.ledger.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: append view: %w", domain.ErrStorageFailure, err)
	}

	views, err := s.ledger.CountViews(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: count views: %w", domain.ErrStorageFailure, err)
	}

	log.Debug().Bool("cached", cached).Int64("views", views).Msg("summary resolved")

	return &domain.Resolution{
		Summary:   summary,
		ViewCount: views,
		Cached:    cached,
	}, nil
}

// create runs the miss path. A collision on insert means another caller won;
// its row is returned and the locally generated text is dropped.
func (s *SummaryService) create(ctx context.Context, fp string, req ports.ResolveRequest) (*domain.Summary, error) {
	started := s.now()
	generated := s.summarizer.Summarize(ctx, req.Content)
	s.metrics.ObserveGeneration(s.now().Sub(started))

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(generated.Title)
	}
	if title == "" {
		title = req.URL
	}

	candidate := &domain.Summary{
		Fingerprint: fp,
		URL:         req.URL,
		Title:       title,
		Short:       generated.Short,
		Medium:      generated.Medium,
		Detailed:    generated.Detailed,
		CreatedAt:   s.now().UTC(),
	}

	result, err := s.store.Insert(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: insert summary: %w", domain.ErrStorageFailure, err)
	}
	if result == domain.Created {
		s.logger.Info().Str("fingerprint", fp).Str("url", req.URL).Msg("summary created")
		return candidate, nil
	}

	s.metrics.IncInsertCollision()
	s.logger.Debug().Str("fingerprint", fp).Msg("insert collided, reading winner")

	existing, err := s.store.Get(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: re-read summary: %w", domain.ErrStorageFailure, err)
	}
	if existing == nil {
		return nil, domain.ErrNotFoundAfterRace
	}
	return existing, nil
}

// Lookup returns a stored summary and its usage without recording a view.
func (s *SummaryService) Lookup(ctx context.Context, fp string) (*domain.Summary, *domain.SummaryStats, error) {
	if !fingerprint.Valid(fp) {
		return nil, nil, fmt.Errorf("%w: malformed fingerprint", domain.ErrInvalidInput)
	}
	summary, err := s.store.Get(ctx, fp)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: get summary: %w", domain.ErrStorageFailure, err)
	}
	if summary == nil {
		return nil, nil, domain.ErrSummaryNotFound
	}
	stats, err := s.ledger.Stats(ctx, fp)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: summary stats: %w", domain.ErrStorageFailure, err)
	}
	return summary, stats, nil
}

func (s *SummaryService) RecordShare(ctx context.Context, fp, userAgent, ip string) error {
	if !fingerprint.Valid(fp) {
		return fmt.Errorf("%w: malformed fingerprint", domain.ErrInvalidInput)
	}
	event := &domain.UsageEvent{
		Fingerprint: fp,
		Kind:        domain.EventShare,
		UserAgent:   userAgent,
		IPHash:      s.hashIP(ip),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.ledger.Append(ctx, event); err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) {
			return err
		}
		return fmt.Errorf("%w: append share: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

func (s *SummaryService) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	stats, err := s.store.GlobalStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: global stats: %w", domain.ErrStorageFailure, err)
	}
	return stats, nil
}

func (s *SummaryService) RecentSummaries(ctx context.Context, limit int) ([]domain.Summary, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	summaries, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list summaries: %w", domain.ErrStorageFailure, err)
	}
	return summaries, nil
}

func (s *SummaryService) SummaryStats(ctx context.Context, fp string) (*domain.SummaryStats, error) {
	_, stats, err := s.Lookup(ctx, fp)
	return stats, err
}

func (s *SummaryService) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// hashIP anonymizes a client address before it reaches the ledger.
func (s *SummaryService) hashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.ipSalt + ip))
	return hex.EncodeToString(sum[:])[:16]
}

var _ ports.SummaryService = (*SummaryService)(nil)
