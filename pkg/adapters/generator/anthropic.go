package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// AnthropicGenerator asks the Messages API for all three levels in a single
// JSON reply.
type AnthropicGenerator struct {
	apiKey    string
	model     string
	maxTokens int
	maxChars  int
	endpoint  string
	client    *http.Client
}

func NewAnthropicGenerator(apiKey, model string, maxChars int) *AnthropicGenerator {
	return &AnthropicGenerator{
		apiKey:    apiKey,
		model:     model,
		maxTokens: 2048,
		maxChars:  maxChars,
		endpoint:  anthropicURL,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *AnthropicGenerator) Generate(ctx context.Context, content string) (domain.Summaries, error) {
	body, err := g.callAPI(ctx, g.buildPrompt(Truncate(content, g.maxChars)))
	if err != nil {
		return domain.Summaries{}, err
	}
	return parseSummariesJSON(body)
}

func (g *AnthropicGenerator) buildPrompt(content string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the article below at three levels of detail.\n\n")
	for _, l := range []level{levelShort, levelMedium, levelDetailed} {
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", l, prompts[l])
	}
	sb.WriteString(`Respond in JSON with this exact structure:
{
  "title": "the article title",
  "short": "...",
  "medium": "...",
  "detailed": "..."
}
Respond ONLY with valid JSON, no markdown fences or additional text.

Article content:

`)
	sb.WriteString(content)
	return sb.String()
}

func (g *AnthropicGenerator) callAPI(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(anthropicRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to read response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("anthropic: failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic: API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return apiResp.Content[0].Text, nil
}

// parseSummariesJSON reads the model's JSON reply, tolerating markdown fences.
func parseSummariesJSON(body string) (domain.Summaries, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var out domain.Summaries
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return domain.Summaries{}, fmt.Errorf("anthropic: failed to parse LLM JSON: %w", err)
	}
	for _, f := range []*string{&out.Short, &out.Medium, &out.Detailed} {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			*f = emptyOutput
		}
	}
	out.Title = strings.TrimSpace(out.Title)
	return out, nil
}
