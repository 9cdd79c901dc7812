package handler

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/core/services"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// maxBodyBytes bounds the summary request body; content beyond the
// generator's character budget is truncated anyway.
const maxBodyBytes = 2 << 20

//go:embed static/share.html
var sharePage []byte

type HTTPHandler struct {
	service ports.SummaryService
	baseURL string
	logger  zerolog.Logger
}

func NewHTTPHandler(service ports.SummaryService, baseURL string, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, baseURL: baseURL, logger: logger}
}

// SummaryRequest payload
type SummaryRequest struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

// Summary resolves a page to its cached or freshly generated summary.
func (h *HTTPHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SummaryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Missing url or content")
		return
	}

	res, err := h.service.Resolve(r.Context(), ports.ResolveRequest{
		URL:       req.URL,
		Content:   req.Content,
		Title:     req.Title,
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, services.Assemble(res, h.origin(r)))
}

// SummaryView is the read-only payload for the share viewer.
type SummaryView struct {
	Fingerprint string           `json:"fingerprint"`
	URL         string           `json:"url"`
	Title       string           `json:"title"`
	Summary     domain.Summaries `json:"summary"`
	Views       int64            `json:"views"`
	Shares      int64            `json:"shares"`
	ShareURL    string           `json:"share_url"`
	CreatedAt   string           `json:"created_at"`
}

// Lookup returns a stored summary without counting a view.
func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	fp := r.PathValue("fingerprint")
	summary, stats, err := h.service.Lookup(r.Context(), fp)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryView{
		Fingerprint: summary.Fingerprint,
		URL:         summary.URL,
		Title:       summary.Title,
		Summary: domain.Summaries{
			Short:    summary.Short,
			Medium:   summary.Medium,
			Detailed: summary.Detailed,
		},
		Views:     stats.Views,
		Shares:    stats.Shares,
		ShareURL:  services.ShareURL(h.origin(r), summary.Fingerprint),
		CreatedAt: summary.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// Share records that a summary link was shared.
func (h *HTTPHandler) Share(w http.ResponseWriter, r *http.Request) {
	fp := r.PathValue("fingerprint")
	if err := h.service.RecordShare(r.Context(), fp, r.UserAgent(), clientIP(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SharePage serves the viewer shell; the page reads the fingerprint from
// its own path and calls Lookup.
func (h *HTTPHandler) SharePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(sharePage)
}

// Health answers 503 while the store is unreachable.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.service.Health(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// Get Global Stats
func (h *HTTPHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GlobalStats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// List recent summaries
func (h *HTTPHandler) AdminSummaries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	summaries, err := h.service.RecentSummaries(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"data":  summaries,
		"total": len(summaries),
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get Stats for a Summary
func (h *HTTPHandler) AdminSummaryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SummaryStats(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// origin is the public base for share links: the configured BASE_URL, or
// what the edge proxy says the caller used.
func (h *HTTPHandler) origin(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSummaryNotFound):
		writeError(w, http.StatusNotFound, "Summary not found")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
	default:
		log := zerolog.Ctx(r.Context())
		if log.GetLevel() == zerolog.Disabled {
			log = &h.logger
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
