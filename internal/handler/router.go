package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Siddarth2230/shortlink/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigin string
	Logger        *slog.Logger
}

// NewRouter wires every route of the HTTP surface. Fixed paths are registered
// before the catch-all /{shortcode} redirect.
func NewRouter(h *LinkHandler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/shorten", h.Shorten).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/all", h.List).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/stats/{shortcode}", h.Stats).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/url/stats/{shortcode}", h.Stats).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/url/shorten", h.Shorten).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/url/all", h.List).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/url/stats/{shortcode}", h.Stats).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/url/{shortcode}", h.Stats).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/{shortcode}", h.Redirect).Methods(http.MethodGet, http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(
		middleware.Logging(cfg.Logger),
		middleware.Metrics,
		mux.CORSMethodMiddleware(r),
		middleware.CORS(cfg.AllowedOrigin),
	)
	return r
}
