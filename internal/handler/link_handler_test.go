package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddarth2230/shortlink/internal/models"
	"github.com/Siddarth2230/shortlink/internal/repository"
	"github.com/Siddarth2230/shortlink/internal/service"
	"github.com/Siddarth2230/shortlink/pkg/idgen"
)

type testEnv struct {
	router http.Handler
	svc    *service.LinkService

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	gen, err := idgen.NewRandomGenerator(idgen.DefaultRandomLength)
	require.NoError(t, err)

	env := &testEnv{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	env.svc = service.NewLinkService(repository.NewLinkRepository(nil), gen, nil)
	env.svc.Now = func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		return env.now
	}
	env.router = NewRouter(NewLinkHandler(env.svc, baseURL, nil), RouterConfig{AllowedOrigin: "*"})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestShorten(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      string
		wantCode  int
		wantError string
	}{
		{name: "generated code", path: "/shorten", body: `{"url":"https://example.com/a"}`, wantCode: http.StatusCreated},
		{name: "custom code", path: "/shorten", body: `{"url":"https://example.com/a","shortcode":"mine","validity":5}`, wantCode: http.StatusCreated},
		{name: "api prefix", path: "/api/url/shorten", body: `{"url":"https://example.com/a"}`, wantCode: http.StatusCreated},
		{name: "malformed json", path: "/shorten", body: `{"url":`, wantCode: http.StatusBadRequest, wantError: "invalid request payload"},
		{name: "unknown field", path: "/shorten", body: `{"url":"https://x.com","foo":1}`, wantCode: http.StatusBadRequest, wantError: "invalid request payload"},
		{name: "invalid url", path: "/shorten", body: `{"url":"not-a-url"}`, wantCode: http.StatusBadRequest, wantError: service.ErrInvalidURL.Error()},
		{name: "fractional validity", path: "/shorten", body: `{"url":"https://x.com","validity":1.5}`, wantCode: http.StatusBadRequest, wantError: service.ErrInvalidValidity.Error()},
		{name: "zero validity", path: "/shorten", body: `{"url":"https://x.com","validity":0}`, wantCode: http.StatusBadRequest, wantError: service.ErrInvalidValidity.Error()},
		{name: "bad shortcode", path: "/shorten", body: `{"url":"https://x.com","shortcode":"bad code!"}`, wantCode: http.StatusBadRequest, wantError: service.ErrInvalidShortcode.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "https://sho.rt")
			rr := env.do(http.MethodPost, tt.path, tt.body)

			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[map[string]string](t, rr)["error"])
				return
			}

			resp := decode[models.LinkResponse](t, rr)
			assert.NotEmpty(t, resp.ShortCode)
			assert.Equal(t, "https://sho.rt/"+resp.ShortCode, resp.ShortLink)
			assert.Equal(t, "https://example.com/a", resp.OriginalURL)
			assert.True(t, resp.Expiry.After(resp.CreatedAt))
			assert.Zero(t, resp.Clicks)
			assert.False(t, resp.Expired)
		})
	}
}

func TestShorten_TakenIsBadRequest(t *testing.T) {
	env := newTestEnv(t, "")
	body := `{"url":"https://example.com/a","shortcode":"dup"}`

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/shorten", body).Code)

	rr := env.do(http.MethodPost, "/shorten", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, service.ErrShortcodeTaken.Error(), decode[map[string]string](t, rr)["error"])
}

func TestShorten_ShortLinkFromRequest(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"url":"https://example.com","shortcode":"abc"}`))
	req.Host = "links.internal:8080"
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "https://links.internal:8080/abc", decode[models.LinkResponse](t, rr).ShortLink)
}

func TestRedirectLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(http.MethodPost, "/shorten", `{"url":"https://example.com/a","shortcode":"life","validity":1}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(http.MethodGet, "/life", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/a", rr.Header().Get("Location"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = env.do(http.MethodGet, "/never-made", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	env.advance(time.Minute)

	rr = env.do(http.MethodGet, "/life", "")
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, "short URL expired", decode[map[string]string](t, rr)["error"])

	for _, path := range []string{"/stats/life", "/url/stats/life", "/api/url/stats/life", "/api/url/life"} {
		rr = env.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rr.Code, path)

		stats := decode[models.LinkResponse](t, rr)
		assert.Equal(t, int64(1), stats.Clicks, path)
		assert.True(t, stats.Expired, path)
	}
}

func TestStats_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodGet, "/stats/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "short code not found", decode[map[string]string](t, rr)["error"])
}

func TestList(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodGet, "/all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())

	for _, code := range []string{"first", "second"} {
		require.Equal(t, http.StatusCreated,
			env.do(http.MethodPost, "/shorten", `{"url":"https://example.com/`+code+`","shortcode":"`+code+`"}`).Code)
	}

	rr = env.do(http.MethodGet, "/api/url/all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	links := decode[[]models.LinkResponse](t, rr)
	require.Len(t, links, 2)
	assert.Equal(t, "first", links[0].ShortCode)
	assert.Equal(t, "second", links[1].ShortCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/shorten", `{"url":"https://example.com"}`).Code)

	rr := env.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["links"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "shortlink_links_stored")
}

func TestRouting_Fallbacks(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodGet, "/a/b/c", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodDelete, "/all", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodOptions, "/shorten", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Zero(t, env.svc.Count())
}

func TestShorten_GeneratedReservedCodeStillRedirects(t *testing.T) {
	codes := []string{"all", "abc123"}
	gen := idgen.Func(func(ctx context.Context) (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	})
	svc := service.NewLinkService(repository.NewLinkRepository(nil), gen, nil)
	router := NewRouter(NewLinkHandler(svc, "", nil), RouterConfig{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"url":"https://example.com/a"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	link := decode[models.LinkResponse](t, rr)
	assert.Equal(t, "abc123", link.ShortCode)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/a", rr.Header().Get("Location"))
}
