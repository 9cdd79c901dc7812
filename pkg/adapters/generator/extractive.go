package generator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

// ExtractiveGenerator builds summaries from the leading sentences of the
// content. It needs no network access and is deterministic.
type ExtractiveGenerator struct {
	maxChars int
}

func NewExtractiveGenerator(maxChars int) *ExtractiveGenerator {
	return &ExtractiveGenerator{maxChars: maxChars}
}

func (g *ExtractiveGenerator) Generate(ctx context.Context, content string) (domain.Summaries, error) {
	if err := ctx.Err(); err != nil {
		return domain.Summaries{}, err
	}
	sentences := splitSentences(Truncate(content, g.maxChars))
	if len(sentences) == 0 {
		return domain.Summaries{}, fmt.Errorf("extractive: no sentences in content")
	}

	bullets := make([]string, 0, 5)
	for _, s := range firstN(sentences, 5) {
		bullets = append(bullets, "• "+s)
	}

	return domain.Summaries{
		Short:    strings.Join(firstN(sentences, 2), " "),
		Medium:   strings.Join(firstN(sentences, 5), " "),
		Detailed: strings.Join(bullets, "\n"),
	}, nil
}

func firstN(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// splitSentences breaks text on terminal punctuation followed by space.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
