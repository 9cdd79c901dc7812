package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

// SummaryStore defines storage operations for summaries
type SummaryStore interface {
	Get(ctx context.Context, fingerprint string) (*domain.Summary, error)
	// Insert must enforce fingerprint uniqueness itself and report a
	// collision as AlreadyExists, not as an error.
	Insert(ctx context.Context, summary *domain.Summary) (domain.InsertResult, error)
	List(ctx context.Context, limit int) ([]domain.Summary, error)
	Dump(ctx context.Context) ([]domain.Summary, error) // For migration
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
	Ping(ctx context.Context) error
}

// UsageLedger is the append-only event log keyed by summary
type UsageLedger interface {
	// Append returns domain.ErrSummaryNotFound when the fingerprint is unknown.
	Append(ctx context.Context, event *domain.UsageEvent) error
	CountViews(ctx context.Context, fingerprint string) (int64, error)
	Stats(ctx context.Context, fingerprint string) (*domain.SummaryStats, error)
}

// Repository is a backend that provides both halves of storage.
type Repository interface {
	SummaryStore
	UsageLedger
	Close() error
}

// Generator is a raw summary provider that may fail.
type Generator interface {
	Generate(ctx context.Context, content string) (domain.Summaries, error)
}

// Summarizer always yields summaries, substituting fallback text on failure.
type Summarizer interface {
	Summarize(ctx context.Context, content string) domain.Summaries
}

// RateLimiter consumes one point for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Metrics is the subset of instrumentation the core reports into.
type Metrics interface {
	IncSummaryCacheHit()
	IncSummaryCacheMiss()
	IncInsertCollision()
	IncGenerationFallback()
	ObserveGeneration(d time.Duration)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, d time.Duration)
	IncRateLimited()
	SetGlobalStats(stats *domain.GlobalStats)
}

// SummaryService defines the business logic operations
type SummaryService interface {
	Resolve(ctx context.Context, req ResolveRequest) (*domain.Resolution, error)
	Lookup(ctx context.Context, fingerprint string) (*domain.Summary, *domain.SummaryStats, error)
	RecordShare(ctx context.Context, fingerprint, userAgent, ip string) error

	// Stats
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
	RecentSummaries(ctx context.Context, limit int) ([]domain.Summary, error)
	SummaryStats(ctx context.Context, fingerprint string) (*domain.SummaryStats, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}

// ResolveRequest carries one inbound summary request.
type ResolveRequest struct {
	URL       string
	Content   string
	Title     string
	UserAgent string
	IP        string
}
