package services

import (
	"strings"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

const (
	// co2PerCachedRead is the display credit for serving a cached summary.
	co2PerCachedRead = 2.5
	viewsPerSearch   = 10
)

// Assemble turns a resolution into the public payload. The impact figures
// are recomputed on every call and never stored.
func Assemble(res *domain.Resolution, origin string) domain.SummaryResponse {
	s := res.Summary
	return domain.SummaryResponse{
		Summary: domain.Summaries{
			Short:    s.Short,
			Medium:   s.Medium,
			Detailed: s.Detailed,
		},
		ReuseCount:          res.ViewCount,
		IsCached:            res.Cached,
		ShareURL:            ShareURL(origin, s.Fingerprint),
		EnvironmentalImpact: Impact(res.Cached, res.ViewCount),
	}
}

func ShareURL(origin, fp string) string {
	return strings.TrimRight(origin, "/") + "/s/" + fp
}

func Impact(cached bool, views int64) domain.EnvironmentalImpact {
	impact := domain.EnvironmentalImpact{}
	if cached {
		impact.CO2SavedGrams = co2PerCachedRead
	}
	if views > 0 {
		impact.EquivalentSearches = views / viewsPerSearch
	}
	return impact
}
