package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casamar/aduanet/internal/api"
	mw "github.com/casamar/aduanet/internal/api/middleware"
	"github.com/casamar/aduanet/internal/store/storemock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&storemock.Store{}, testSecret, time.Hour),
		RateLimit: mw.NewRateLimit(&noopCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LoginEndpoint_Public(t *testing.T) {
	// No login handler is wired, so the route answers 501 rather than 401:
	// it sits outside the authenticated group.
	router := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/documents"},
		{"POST", "/api/v1/documents"},
		{"POST", "/api/v1/documents/export"},
		{"GET", "/api/v1/documents/11111111-1111-1111-1111-111111111111"},
		{"GET", "/api/v1/documents/11111111-1111-1111-1111-111111111111/download"},
		{"PATCH", "/api/v1/documents/11111111-1111-1111-1111-111111111111"},
		{"DELETE", "/api/v1/documents/11111111-1111-1111-1111-111111111111"},
		{"GET", "/api/v1/declarations"},
		{"GET", "/api/v1/storage/report"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- stub cache ---

type noopCache struct{}

func (c *noopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *noopCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *noopCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *noopCache) Ping(_ context.Context) error                                     { return nil }
func (c *noopCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}
