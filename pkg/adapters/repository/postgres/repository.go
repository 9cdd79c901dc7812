// Package postgres stores summaries and usage events in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := Migrate(dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Migrate applies the embedded migrations to dsn.
func Migrate(dsn string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dsn))
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

const summaryColumns = `id, fingerprint, url, COALESCE(title, ''), short_summary, medium_summary, detailed_summary, created_at`

func (r *Repository) Get(ctx context.Context, fp string) (*domain.Summary, error) {
	var s domain.Summary
	err := r.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE fingerprint = $1`, fp).Scan(
		&s.ID, &s.Fingerprint, &s.URL, &s.Title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Insert(ctx context.Context, s *domain.Summary) (domain.InsertResult, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO summaries (fingerprint, url, title, short_summary, medium_summary, detailed_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id`,
		s.Fingerprint, s.URL, s.Title, s.Short, s.Medium, s.Detailed, s.CreatedAt,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AlreadyExists, nil
	}
	if err != nil {
		return 0, err
	}
	return domain.Created, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.fingerprint, s.url, COALESCE(s.title, ''), s.short_summary, s.medium_summary, s.detailed_summary, s.created_at,
			   COUNT(e.id) AS views
		FROM summaries s
		LEFT JOIN usage_events e ON e.summary_id = s.id AND e.kind = 'view'
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(&s.ID, &s.Fingerprint, &s.URL, &s.Title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt, &s.Views); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Summary, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+summaryColumns+` FROM summaries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(&s.ID, &s.Fingerprint, &s.URL, &s.Title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	var stats domain.GlobalStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM summaries),
			(SELECT COUNT(*) FROM usage_events WHERE kind = 'view')`,
	).Scan(&stats.TotalSummaries, &stats.TotalViews)
	if err != nil {
		return nil, err
	}
	stats.TotalReuses = max(stats.TotalViews-stats.TotalSummaries, 0)
	return &stats, nil
}

func (r *Repository) Append(ctx context.Context, event *domain.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO usage_events (summary_id, kind, user_agent, ip_hash, created_at)
		SELECT id, $1, $2, $3, $4 FROM summaries WHERE fingerprint = $5
		RETURNING id`,
		string(event.Kind), event.UserAgent, event.IPHash, event.CreatedAt, event.Fingerprint,
	).Scan(&event.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSummaryNotFound
	}
	return err
}

func (r *Repository) CountViews(ctx context.Context, fp string) (int64, error) {
	return r.countEvents(ctx, fp, domain.EventView)
}

func (r *Repository) countEvents(ctx context.Context, fp string, kind domain.EventKind) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM usage_events e
		JOIN summaries s ON e.summary_id = s.id
		WHERE s.fingerprint = $1 AND e.kind = $2`, fp, string(kind)).Scan(&count)
	return count, err
}

func (r *Repository) Stats(ctx context.Context, fp string) (*domain.SummaryStats, error) {
	stats := &domain.SummaryStats{
		Fingerprint: fp,
		DailyViews:  []domain.DailyCount{},
	}

	var err error
	if stats.Views, err = r.countEvents(ctx, fp, domain.EventView); err != nil {
		return nil, err
	}
	if stats.Shares, err = r.countEvents(ctx, fp, domain.EventShare); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT to_char(e.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*)
		FROM usage_events e
		JOIN summaries s ON e.summary_id = s.id
		WHERE s.fingerprint = $1 AND e.kind = 'view'
		GROUP BY date
		ORDER BY date DESC
		LIMIT 30`, fp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc domain.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		stats.DailyViews = append(stats.DailyViews, dc)
	}
	return stats, rows.Err()
}

var _ ports.Repository = (*Repository)(nil)
