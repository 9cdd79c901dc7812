package generator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// Fallback is the degraded text stored when generation fails. It is stored
// permanently; nothing regenerates it later.
var Fallback = domain.Summaries{
	Short:    "Summary temporarily unavailable. This article has been saved and will be processed shortly.",
	Medium:   "Summary temporarily unavailable due to high demand. The article content has been saved to our database and will be processed automatically. Please check back in a few minutes for the complete summary.",
	Detailed: "• Summary generation is temporarily unavailable\n• Your article has been saved and queued for processing\n• Summaries are usually ready within 30 seconds\n• You can bookmark this link and return later\n• This helps us handle high traffic while maintaining quality",
}

// FallbackGenerator adapts a Generator into a Summarizer that never fails.
type FallbackGenerator struct {
	next    ports.Generator
	timeout time.Duration
	metrics ports.Metrics
	logger  zerolog.Logger
}

func NewFallbackGenerator(next ports.Generator, timeout time.Duration, metrics ports.Metrics, logger zerolog.Logger) *FallbackGenerator {
	return &FallbackGenerator{
		next:    next,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.With().Str("component", "generator").Logger(),
	}
}

// Summarize bounds the wrapped generator by the configured timeout and
// substitutes Fallback on any error.
func (g *FallbackGenerator) Summarize(ctx context.Context, content string) domain.Summaries {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type outcome struct {
		summaries domain.Summaries
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := g.next.Generate(ctx, content)
		done <- outcome{s, err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.summaries
		}
		g.logger.Warn().Err(out.err).Msg("using fallback summaries")
	case <-ctx.Done():
		g.logger.Warn().Err(ctx.Err()).Msg("generation timed out, using fallback summaries")
	}
	g.metrics.IncGenerationFallback()
	return Fallback
}

var _ ports.Summarizer = (*FallbackGenerator)(nil)
