// Package generator holds the summary providers and the fallback wrapper
// the coordinator talks to.
package generator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// ErrUnsupportedGenerator is returned when an unknown provider is configured.
var ErrUnsupportedGenerator = fmt.Errorf("unsupported generator type")

// New builds the configured provider. A hosted provider without an API key
// degrades to the extractive generator.
func New(cfg *config.Config, logger zerolog.Logger) (ports.Generator, error) {
	switch cfg.Generator.Type {
	case "gemini":
		if cfg.Generator.GeminiAPIKey == "" {
			logger.Warn().Msg("GEMINI_API_KEY not set, using extractive generator")
			return NewExtractiveGenerator(cfg.Generator.MaxContentChars), nil
		}
		return NewGeminiGenerator(cfg.Generator.GeminiAPIKey, cfg.Generator.GeminiModel, cfg.Generator.MaxContentChars), nil
	case "anthropic":
		if cfg.Generator.AnthropicAPIKey == "" {
			logger.Warn().Msg("ANTHROPIC_API_KEY not set, using extractive generator")
			return NewExtractiveGenerator(cfg.Generator.MaxContentChars), nil
		}
		return NewAnthropicGenerator(cfg.Generator.AnthropicAPIKey, cfg.Generator.AnthropicModel, cfg.Generator.MaxContentChars), nil
	case "extractive":
		return NewExtractiveGenerator(cfg.Generator.MaxContentChars), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGenerator, cfg.Generator.Type)
	}
}

// NewSummarizer builds the configured provider wrapped with fallback handling.
func NewSummarizer(cfg *config.Config, metrics ports.Metrics, logger zerolog.Logger) (ports.Summarizer, error) {
	g, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewFallbackGenerator(g, cfg.Generator.Timeout, metrics, logger), nil
}
