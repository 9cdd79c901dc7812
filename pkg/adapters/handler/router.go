package handler

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// NewRouter creates and configures the main application router.
// metricsHandler may be nil when metrics are not exposed.
func NewRouter(cfg *config.Config, service ports.SummaryService, limiter ports.RateLimiter, metrics ports.Metrics, metricsHandler http.Handler, logger zerolog.Logger) http.Handler {
	h := NewHTTPHandler(service, cfg.BaseURL, logger)
	mw := NewMiddleware(cfg, limiter, metrics, logger)
	authHandler := NewAuthHandler(cfg, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", h.Health)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	summary := mw.CORS(postOnly(mw.RateLimit(http.HandlerFunc(h.Summary))))
	mux.Handle("/summary", mw.Instrument("summary", summary))
	mux.Handle("/api/summary", mw.Instrument("summary", summary))
	mux.Handle("GET /api/summary/{fingerprint}", mw.Instrument("lookup", mw.CORS(http.HandlerFunc(h.Lookup))))
	mux.Handle("/api/summary/{fingerprint}/share", mw.Instrument("share", mw.CORS(postOnly(http.HandlerFunc(h.Share)))))
	mux.Handle("GET /s/{fingerprint}", mw.Instrument("share_page", http.HandlerFunc(h.SharePage)))

	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes (admin API)
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /api/v1/admin/stats", h.AdminStats)
	protectedMux.HandleFunc("GET /api/v1/admin/summaries", h.AdminSummaries)
	protectedMux.HandleFunc("GET /api/v1/admin/summaries/{fingerprint}/stats", h.AdminSummaryStats)

	// protectedMux holds full paths, so the /api/v1/ subtree dispatches as is.
	mux.Handle("/api/v1/", mw.Instrument("admin", mw.AuthMiddleware(protectedMux)))

	return mw.RequestLogger(gzhttp.GzipHandler(mux))
}

// postOnly answers 405 before any rate budget is spent.
func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
