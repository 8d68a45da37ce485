package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/Siddarth2230/shortlink/internal/models"
	"github.com/Siddarth2230/shortlink/internal/service"
)

type LinkHandler struct {
	service *service.LinkService
	baseURL string
	logger  *slog.Logger
}

// NewLinkHandler builds the HTTP handlers. When baseURL is empty, short links
// are built from the scheme and host of each create request.
func NewLinkHandler(svc *service.LinkService, baseURL string, logger *slog.Logger) *LinkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkHandler{
		service: svc,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("package", "handler"),
	}
}

// shortenPayload is the wire form of models.ShortenRequest. Validity is kept as
// a json.Number so that fractional values are reported as invalid validity
// rather than as a malformed body.
type shortenPayload struct {
	URL       string       `json:"url"`
	Validity  *json.Number `json:"validity,omitempty"`
	ShortCode string       `json:"shortcode,omitempty"`
}

// POST /shorten
func (h *LinkHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload shortenPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := models.ShortenRequest{URL: strings.TrimSpace(payload.URL), ShortCode: payload.ShortCode}
	if payload.Validity != nil {
		minutes, err := strconv.Atoi(payload.Validity.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, service.ErrInvalidValidity.Error())
			return
		}
		req.Validity = &minutes
	}

	link, err := h.service.Create(ctx, req, h.requestBaseURL(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewLinkResponse(*link, h.service.Now()))
}

// GET /{shortcode} - redirect to the original URL
func (h *LinkHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortcode"]
	if shortCode == "" {
		writeError(w, http.StatusBadRequest, "missing short code")
		return
	}

	longURL, err := h.service.Resolve(r.Context(), shortCode)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// every visit must reach us to be counted
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, longURL, http.StatusFound)
}

// GET /stats/{shortcode}
func (h *LinkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortcode"]

	link, err := h.service.GetStats(r.Context(), shortCode)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewLinkResponse(*link, h.service.Now()))
}

// GET /all
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	now := h.service.Now()
	resp := lo.Map(links, func(l models.Link, _ int) models.LinkResponse {
		return models.NewLinkResponse(l, now)
	})
	writeJSON(w, http.StatusOK, resp)
}

// GET /healthz
func (h *LinkHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"links":  h.service.Count(),
	})
}

func (h *LinkHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidValidity),
		errors.Is(err, service.ErrInvalidShortcode),
		errors.Is(err, service.ErrShortcodeTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "short code not found")
	case errors.Is(err, service.ErrExpired):
		writeError(w, http.StatusGone, "short URL expired")
	case errors.Is(err, service.ErrGenExhausted):
		h.logger.Error("short code generation exhausted", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requestBaseURL returns the configured base URL, or one derived from the
// request honoring X-Forwarded-Proto.
func (h *LinkHandler) requestBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

// helper: write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", "package", "handler", "error", err)
	}
}

// helper: write an error message in JSON form { "error": "msg" }
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
