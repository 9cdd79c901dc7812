package domain

import "time"

// Summary is the stored result for one fingerprint. It is never updated.
type Summary struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Short       string    `json:"short"`
	Medium      string    `json:"medium"`
	Detailed    string    `json:"detailed"`
	CreatedAt   time.Time `json:"created_at"`
	Views       int64     `json:"views,omitempty"` // Aggregated count, populated by listings
}

// Summaries is the output of a generator.
type Summaries struct {
	Title    string `json:"title,omitempty"`
	Short    string `json:"short"`
	Medium   string `json:"medium"`
	Detailed string `json:"detailed"`
}

// InsertResult tells a caller whether its insert created the row.
type InsertResult int

const (
	Created InsertResult = iota + 1
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Resolution is what the coordinator hands back for one resolve call.
type Resolution struct {
	Summary   *Summary
	ViewCount int64
	Cached    bool
}

// SummaryResponse is the public payload of POST /summary.
type SummaryResponse struct {
	Summary             Summaries           `json:"summary"`
	ReuseCount          int64               `json:"reuse_count"`
	IsCached            bool                `json:"is_cached"`
	ShareURL            string              `json:"share_url"`
	EnvironmentalImpact EnvironmentalImpact `json:"environmental_impact"`
}

// EnvironmentalImpact is display-only and never persisted.
type EnvironmentalImpact struct {
	CO2SavedGrams      float64 `json:"co2_saved_grams"`
	EquivalentSearches int64   `json:"equivalent_searches"`
}
