package domain

import "time"

type EventKind string

const (
	EventView  EventKind = "view"
	EventShare EventKind = "share"
)

// UsageEvent is one append-only ledger entry against a summary.
type UsageEvent struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Kind        EventKind `json:"kind"`
	UserAgent   string    `json:"user_agent"`
	IPHash      string    `json:"ip_hash"` // Anonymized IP
	CreatedAt   time.Time `json:"created_at"`
}

// SummaryStats represents aggregated usage for one summary
type SummaryStats struct {
	Fingerprint string       `json:"fingerprint"`
	Views       int64        `json:"views"`
	Shares      int64        `json:"shares"`
	DailyViews  []DailyCount `json:"daily_views"` // timeline
}

type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// GlobalStats are system-wide totals for the admin dashboard.
type GlobalStats struct {
	TotalSummaries int64 `json:"total_summaries"`
	TotalViews     int64 `json:"total_views"`
	TotalReuses    int64 `json:"total_reuses"`
}
