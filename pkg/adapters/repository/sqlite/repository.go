package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	} else {
		dbURL = withPragmas(dbURL)
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

// withPragmas adds the connection pragmas concurrent writers need unless the
// URL already sets its own.
func withPragmas(dbURL string) string {
	if strings.Contains(dbURL, "_pragma=") {
		return dbURL
	}
	pragmas := []string{"_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)"}
	if !strings.Contains(dbURL, "mode=memory") && !strings.Contains(dbURL, ":memory:") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + strings.Join(pragmas, "&")
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		title TEXT,
		short_summary TEXT NOT NULL,
		medium_summary TEXT NOT NULL,
		detailed_summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		summary_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		user_agent TEXT,
		ip_hash TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(summary_id) REFERENCES summaries(id)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_events_summary_kind ON usage_events(summary_id, kind);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Get(ctx context.Context, fp string) (*domain.Summary, error) {
	query := `SELECT id, fingerprint, url, title, short_summary, medium_summary, detailed_summary, created_at
			  FROM summaries WHERE fingerprint = ?`

	var s domain.Summary
	var title sql.NullString
	err := r.db.QueryRowContext(ctx, query, fp).Scan(
		&s.ID, &s.Fingerprint, &s.URL, &title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Title = title.String
	return &s, nil
}

// Insert relies on the UNIQUE constraint: a conflicting row makes the
// statement a no-op, which is reported as AlreadyExists.
func (r *SQLiteRepository) Insert(ctx context.Context, s *domain.Summary) (domain.InsertResult, error) {
	query := `INSERT INTO summaries (fingerprint, url, title, short_summary, medium_summary, detailed_summary, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(fingerprint) DO NOTHING`

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, query, s.Fingerprint, s.URL, s.Title, s.Short, s.Medium, s.Detailed, s.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return domain.AlreadyExists, nil
	}

	if id, err := res.LastInsertId(); err == nil {
		s.ID = id
	}
	return domain.Created, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]domain.Summary, error) {
	query := `
		SELECT s.id, s.fingerprint, s.url, s.title, s.short_summary, s.medium_summary, s.detailed_summary, s.created_at,
			   COUNT(e.id) AS views
		FROM summaries s
		LEFT JOIN usage_events e ON e.summary_id = s.id AND e.kind = 'view'
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var s domain.Summary
		var title sql.NullString
		if err := rows.Scan(&s.ID, &s.Fingerprint, &s.URL, &title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt, &s.Views); err != nil {
			return nil, err
		}
		s.Title = title.String
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Summary, error) {
	query := `SELECT id, fingerprint, url, title, short_summary, medium_summary, detailed_summary, created_at
			  FROM summaries ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var s domain.Summary
		var title sql.NullString
		if err := rows.Scan(&s.ID, &s.Fingerprint, &s.URL, &title, &s.Short, &s.Medium, &s.Detailed, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Title = title.String
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SQLiteRepository) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	var stats domain.GlobalStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries`).Scan(&stats.TotalSummaries)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_events WHERE kind = 'view'`).Scan(&stats.TotalViews)
	if err != nil {
		return nil, err
	}
	stats.TotalReuses = max(stats.TotalViews-stats.TotalSummaries, 0)
	return &stats, nil
}

// Append resolves the fingerprint and inserts the event in one statement,
// so an unknown fingerprint inserts nothing.
func (r *SQLiteRepository) Append(ctx context.Context, event *domain.UsageEvent) error {
	query := `INSERT INTO usage_events (summary_id, kind, user_agent, ip_hash, created_at)
			  SELECT id, ?, ?, ?, ? FROM summaries WHERE fingerprint = ?`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, query, string(event.Kind), event.UserAgent, event.IPHash, event.CreatedAt.UTC().Format(timeLayout), event.Fingerprint)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSummaryNotFound
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

func (r *SQLiteRepository) CountViews(ctx context.Context, fp string) (int64, error) {
	return r.countEvents(ctx, fp, domain.EventView)
}

func (r *SQLiteRepository) countEvents(ctx context.Context, fp string, kind domain.EventKind) (int64, error) {
	query := `SELECT COUNT(*) FROM usage_events e
			  JOIN summaries s ON e.summary_id = s.id
			  WHERE s.fingerprint = ? AND e.kind = ?`
	var count int64
	err := r.db.QueryRowContext(ctx, query, fp, string(kind)).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) Stats(ctx context.Context, fp string) (*domain.SummaryStats, error) {
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

	// Daily Views (Last 30 days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', e.created_at) AS date, COUNT(*)
		FROM usage_events e
		JOIN summaries s ON e.summary_id = s.id
		WHERE s.fingerprint = ? AND e.kind = 'view'
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

// Ensure interface compliance
var _ ports.Repository = (*SQLiteRepository)(nil)
