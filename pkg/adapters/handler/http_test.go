package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/adapters/ratelimit"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/core/services"
	"github.com/wadjakorntonsri/tinyread/pkg/metrics"
)

type echoSummarizer struct{}

func (echoSummarizer) Summarize(_ context.Context, content string) domain.Summaries {
	return domain.Summaries{Short: "S:" + content, Medium: "M:" + content, Detailed: "D:" + content}
}

type testServer struct {
	handler http.Handler
	metrics *metrics.Provider
}

func newTestServer(t *testing.T, points int) *testServer {
	t.Helper()
	repo := memory.NewRepository()
	m := metrics.New()
	svc := services.NewSummaryService(repo, repo, echoSummarizer{}, m, zerolog.Nop())
	cfg := testConfig()
	return &testServer{
		handler: NewRouter(cfg, svc, ratelimit.NewMemoryLimiter(points, time.Minute), m, m.Handler(), zerolog.Nop()),
		metrics: m,
	}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = "tinyread.test"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestSummary_MissThenHit(t *testing.T) {
	srv := newTestServer(t, 100)
	body := map[string]string{"url": "https://x.test/a", "content": "C1"}

	rr := srv.do(http.MethodPost, "/summary", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[domain.SummaryResponse](t, rr)
	assert.False(t, first.IsCached)
	assert.Equal(t, int64(1), first.ReuseCount)
	assert.Equal(t, "S:C1", first.Summary.Short)
	assert.Zero(t, first.EnvironmentalImpact.CO2SavedGrams)
	assert.True(t, strings.HasPrefix(first.ShareURL, "https://tinyread.test/s/"))

	body["content"] = "C2"
	rr = srv.do(http.MethodPost, "/api/summary", body)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[domain.SummaryResponse](t, rr)
	assert.True(t, second.IsCached)
	assert.Equal(t, int64(2), second.ReuseCount)
	assert.Equal(t, "S:C1", second.Summary.Short)
	assert.Equal(t, 2.5, second.EnvironmentalImpact.CO2SavedGrams)
	assert.Equal(t, first.ShareURL, second.ShareURL)
}

func TestSummary_ForwardedOrigin(t *testing.T) {
	srv := newTestServer(t, 100)
	rr := srv.do(http.MethodPost, "/summary", map[string]string{"url": "https://x.test/o", "content": "c"},
		"X-Forwarded-Proto", "http", "X-Forwarded-Host", "edge.example")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[domain.SummaryResponse](t, rr)
	assert.True(t, strings.HasPrefix(resp.ShareURL, "http://edge.example/s/"), resp.ShareURL)
}

func TestSummary_Errors(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := srv.do(http.MethodGet, "/summary", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = srv.do(http.MethodPost, "/summary", map[string]string{"url": "https://x.test/a"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing url or content", decode[map[string]string](t, rr)["error"])

	req := httptest.NewRequest(http.MethodPost, "/summary", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSummary_RateLimited(t *testing.T) {
	srv := newTestServer(t, 2)
	body := map[string]string{"url": "https://x.test/rl", "content": "c"}

	for range 2 {
		assert.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/summary", body, "X-Forwarded-For", "203.0.113.1").Code)
	}
	rr := srv.do(http.MethodPost, "/summary", body, "X-Forwarded-For", "203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Rate limit exceeded", decode[map[string]string](t, rr)["error"])
}

func TestLookupShareAndPage(t *testing.T) {
	srv := newTestServer(t, 100)
	rr := srv.do(http.MethodPost, "/summary", map[string]string{"url": "https://x.test/l", "content": "c", "title": "Hello"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[domain.SummaryResponse](t, rr)
	fp := resp.ShareURL[strings.LastIndex(resp.ShareURL, "/")+1:]

	rr = srv.do(http.MethodGet, "/api/summary/"+fp, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[SummaryView](t, rr)
	assert.Equal(t, "Hello", view.Title)
	assert.Equal(t, int64(1), view.Views)
	assert.Equal(t, "M:c", view.Summary.Medium)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = srv.do(http.MethodPost, "/api/summary/"+fp+"/share", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = srv.do(http.MethodGet, "/api/summary/"+fp, nil)
	assert.Equal(t, int64(1), decode[SummaryView](t, rr).Shares)

	rr = srv.do(http.MethodGet, "/api/summary/0000000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(http.MethodGet, "/api/summary/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(http.MethodGet, "/s/"+fp, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "/api/summary/")
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t, 100)
	for _, u := range []string{"https://x.test/1", "https://x.test/2", "https://x.test/1"} {
		require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/summary", map[string]string{"url": u, "content": "c"}).Code)
	}

	rr := srv.do(http.MethodGet, "/api/v1/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	cookie := "auth_token=" + generateTestToken(t, testConfig().Auth.JWTSecret, time.Minute)

	rr = srv.do(http.MethodGet, "/api/v1/admin/stats", nil, "Cookie", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[domain.GlobalStats](t, rr)
	assert.Equal(t, int64(2), stats.TotalSummaries)
	assert.Equal(t, int64(3), stats.TotalViews)

	rr = srv.do(http.MethodGet, "/api/v1/admin/summaries?limit=1", nil, "Cookie", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Data  []domain.Summary `json:"data"`
		Total int              `json:"total"`
	}](t, rr)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, 1, list.Total)
}

type downStore struct {
	*memory.Repository
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	repo := memory.NewRepository()
	m := metrics.New()
	svc := services.NewSummaryService(downStore{repo}, repo, echoSummarizer{}, m, zerolog.Nop())
	h := NewRouter(testConfig(), svc, ratelimit.NewMemoryLimiter(100, time.Minute), m, m.Handler(), zerolog.Nop())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, rr)["message"])
}

func TestShare_Preflight(t *testing.T) {
	srv := newTestServer(t, 100)
	path := "/api/summary/0123456789abcdef/share"

	rr := srv.do(http.MethodOptions, path, nil, "Origin", "https://reader.test", "Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = srv.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := srv.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["message"])

	srv.do(http.MethodPost, "/summary", map[string]string{"url": "https://x.test/m", "content": "c"})
	rr = srv.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `tinyread_requests_total{endpoint="summary",status="2xx"} 1`)
	assert.Contains(t, rr.Body.String(), "tinyread_summary_cache_misses_total 1")
}
