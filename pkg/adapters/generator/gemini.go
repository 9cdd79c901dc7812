package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiGenerator calls the Generative Language REST API once per summary
// level, all three in parallel.
type GeminiGenerator struct {
	apiKey   string
	model    string
	maxChars int
	baseURL  string
	client   *http.Client
}

func NewGeminiGenerator(apiKey, model string, maxChars int) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey:   apiKey,
		model:    model,
		maxChars: maxChars,
		baseURL:  geminiBaseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, content string) (domain.Summaries, error) {
	content = Truncate(content, g.maxChars)

	var out domain.Summaries
	eg, ctx := errgroup.WithContext(ctx)
	targets := map[level]*string{
		levelShort:    &out.Short,
		levelMedium:   &out.Medium,
		levelDetailed: &out.Detailed,
	}
	for l, dst := range targets {
		eg.Go(func() error {
			text, err := g.callAPI(ctx, buildPrompt(l, content))
			if err != nil {
				return fmt.Errorf("gemini %s: %w", l, err)
			}
			*dst = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.Summaries{}, err
	}
	return out, nil
}

func (g *GeminiGenerator) callAPI(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: status %d %s - %s", apiResp.Error.Code, apiResp.Error.Status, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var sb strings.Builder
	if len(apiResp.Candidates) > 0 {
		for _, p := range apiResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return emptyOutput, nil
	}
	return text, nil
}
