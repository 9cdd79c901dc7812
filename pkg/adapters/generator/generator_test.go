package generator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/metrics"
)

type stubGenerator struct {
	out   domain.Summaries
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubGenerator) Generate(ctx context.Context, _ string) (domain.Summaries, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.Summaries{}, ctx.Err()
		}
	}
	return s.out, s.err
}

type fallbackCounter struct {
	metrics.Noop
	fallbacks atomic.Int32
}

func (f *fallbackCounter) IncGenerationFallback() { f.fallbacks.Add(1) }

func TestFallbackGenerator_PassesThrough(t *testing.T) {
	want := domain.Summaries{Short: "s", Medium: "m", Detailed: "d"}
	m := &fallbackCounter{}
	g := NewFallbackGenerator(&stubGenerator{out: want}, time.Second, m, zerolog.Nop())

	assert.Equal(t, want, g.Summarize(context.Background(), "content"))
	assert.Zero(t, m.fallbacks.Load())
}

func TestFallbackGenerator_Error(t *testing.T) {
	m := &fallbackCounter{}
	g := NewFallbackGenerator(&stubGenerator{err: errors.New("quota exceeded")}, time.Second, m, zerolog.Nop())

	assert.Equal(t, Fallback, g.Summarize(context.Background(), "content"))
	assert.Equal(t, int32(1), m.fallbacks.Load())
}

func TestFallbackGenerator_Timeout(t *testing.T) {
	m := &fallbackCounter{}
	g := NewFallbackGenerator(&stubGenerator{delay: time.Second}, 20*time.Millisecond, m, zerolog.Nop())

	start := time.Now()
	got := g.Summarize(context.Background(), "content")

	assert.Equal(t, Fallback, got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), m.fallbacks.Load())
}

func TestFallbackGenerator_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewFallbackGenerator(&stubGenerator{delay: time.Second}, 0, metrics.Noop{}, zerolog.Nop())

	assert.Equal(t, Fallback, g.Summarize(ctx, "content"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hello", Truncate("hello", 0))
	assert.Equal(t, "hel"+truncatedMarker, Truncate("hello", 3))
	assert.Equal(t, "héé"+truncatedMarker, Truncate("héééé", 3))
}

func TestExtractiveGenerator(t *testing.T) {
	g := NewExtractiveGenerator(0)
	content := "One. Two is here! Three? Four.  Five.\nSix. Seven."

	out, err := g.Generate(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, "One. Two is here!", out.Short)
	assert.Equal(t, "One. Two is here! Three? Four. Five.", out.Medium)
	assert.Equal(t, "• One.\n• Two is here!\n• Three?\n• Four.\n• Five.", out.Detailed)

	again, err := g.Generate(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestExtractiveGenerator_Empty(t *testing.T) {
	_, err := NewExtractiveGenerator(0).Generate(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSplitSentences_KeepsDecimals(t *testing.T) {
	assert.Equal(t, []string{"It costs 3.50 dollars.", "Cheap"}, splitSentences("It costs 3.50 dollars. Cheap"))
}

func TestGeminiGenerator(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req geminiRequest
		body, _ := io.ReadAll(r.Body)
		if !assert.NoError(t, json.Unmarshal(body, &req)) || len(req.Contents) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := req.Contents[0].Parts[0].Text

		var reply string
		switch {
		case strings.HasPrefix(prompt, prompts[levelShort]):
			reply = "short text"
		case strings.HasPrefix(prompt, prompts[levelMedium]):
			reply = "medium text"
		default:
			reply = "  detailed text  "
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":` + quote(reply) + `}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("k", "gemini-test", 100)
	g.baseURL = srv.URL

	out, err := g.Generate(context.Background(), "article body")
	require.NoError(t, err)
	assert.Equal(t, "short text", out.Short)
	assert.Equal(t, "medium text", out.Medium)
	assert.Equal(t, "detailed text", out.Detailed)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeminiGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("k", "m", 100)
	g.baseURL = srv.URL

	_, err := g.Generate(context.Background(), "article body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
}

func TestGeminiGenerator_EmptyCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("k", "m", 100)
	g.baseURL = srv.URL

	out, err := g.Generate(context.Background(), "article body")
	require.NoError(t, err)
	assert.Equal(t, emptyOutput, out.Short)
}

func TestAnthropicGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "claude-test", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "article body")
		}

		reply := "```json\n{\"title\":\" T \",\"short\":\"s\",\"medium\":\"m\",\"detailed\":\"\"}\n```"
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":` + quote(reply) + `}]}`))
	}))
	defer srv.Close()

	g := NewAnthropicGenerator("k", "claude-test", 100)
	g.endpoint = srv.URL

	out, err := g.Generate(context.Background(), "article body")
	require.NoError(t, err)
	assert.Equal(t, domain.Summaries{Title: "T", Short: "s", Medium: "m", Detailed: emptyOutput}, out)
}

func TestAnthropicGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	g := NewAnthropicGenerator("bad", "m", 100)
	g.endpoint = srv.URL

	_, err := g.Generate(context.Background(), "article body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication_error")
}

func TestParseSummariesJSON_Invalid(t *testing.T) {
	_, err := parseSummariesJSON("not json")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cases := []struct {
		name    string
		gen     config.GeneratorConfig
		wantT   any
		wantErr error
	}{
		{"gemini with key", config.GeneratorConfig{Type: "gemini", GeminiAPIKey: "k"}, &GeminiGenerator{}, nil},
		{"gemini without key", config.GeneratorConfig{Type: "gemini"}, &ExtractiveGenerator{}, nil},
		{"anthropic with key", config.GeneratorConfig{Type: "anthropic", AnthropicAPIKey: "k"}, &AnthropicGenerator{}, nil},
		{"anthropic without key", config.GeneratorConfig{Type: "anthropic"}, &ExtractiveGenerator{}, nil},
		{"extractive", config.GeneratorConfig{Type: "extractive"}, &ExtractiveGenerator{}, nil},
		{"unknown", config.GeneratorConfig{Type: "magic"}, nil, ErrUnsupportedGenerator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(&config.Config{Generator: tc.gen}, zerolog.Nop())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.wantT, g)
		})
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
