package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, CORSOrigins: []string{"*"}},
		Store:  config.StoreConfig{Driver: db.DriverSQLite},
		Auth: config.AuthConfig{
			JWTSecret:          testJWTSecret,
			JWTExpirationHours: 24,
			BcryptCost:         10,
		},
		LLM:         config.LLMConfig{Provider: "disabled", TimeoutSecs: 5},
		Pipeline:    config.PipelineConfig{BandingRemediation: "reassign"},
		Categorizer: config.CategorizerConfig{FallbackConfidence: "split", BatchConcurrency: 2},
		RateLimit:   config.RateLimitConfig{Enabled: false},
		Log:         config.LogConfig{Level: "info", Format: "json"},
	}
}

func newSQLiteStore(t *testing.T) *db.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

// newTestServer builds a server over a fresh SQLite store. A nil client runs
// the server without model access.
func newTestServer(t *testing.T, cfg *config.Config, store db.Store, client llm.Client) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if store == nil {
		store = newSQLiteStore(t)
	}
	if client == nil {
		client = llm.NewDisabledClient()
	}
	s, err := New(cfg, store, client)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeInto(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func registerUser(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["token"].(string)
}

func sampleProfileBody() map[string]any {
	return map[string]any{
		"company_name":          "Acme Traders",
		"nature_of_business":    "Wholesale of office supplies",
		"industry":              "Retail",
		"location":              "Mumbai",
		"company_type":          "Private Limited",
		"statutory_compliances": []string{"GST", "TDS"},
	}
}

func createCompany(t *testing.T, h http.Handler, token string) uuid.UUID {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/company-profile", sampleProfileBody(), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, err := uuid.Parse(decodeBody(t, w)["id"].(string))
	require.NoError(t, err)
	return id
}

func TestNew_RequiresJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	_, err := New(cfg, newSQLiteStore(t), llm.NewDisabledClient())
	assert.Error(t, err)
}

func TestRoot(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	w := doRequest(t, h, http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, false, body["ai_available"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		client    llm.Client
		wantAI    string
		wantModel string
	}{
		{"model disabled", llm.NewDisabledClient(), AIStatusFallback, ""},
		{"model enabled", llmtest.Fixed(`{}`), AIStatusEnabled, llmtest.StubModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, nil, nil, tt.client)

			w := doRequest(t, h, http.MethodGet, "/health", nil, "")

			require.Equal(t, http.StatusOK, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, tt.wantAI, resp.AIStatus)
			assert.Equal(t, tt.wantModel, resp.Model)
			assert.Equal(t, db.DriverSQLite, resp.Store)
			assert.Equal(t, "connected", resp.Database)
		})
	}
}

func TestHealth_StoreDown(t *testing.T) {
	store := newSQLiteStore(t)
	h := newTestServer(t, nil, store, nil)
	require.NoError(t, store.Close())

	w := doRequest(t, h, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["status"])
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	w := doRequest(t, h, http.MethodGet, "/api/nothing-here", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestAuthFlow(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	w := doRequest(t, h, http.MethodPost, "/auth/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "password")
	token := body["token"].(string)

	w = doRequest(t, h, http.MethodPost, "/auth/register", map[string]string{
		"name": "Ada", "email": "ADA@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decodeBody(t, w)["error"])

	change := map[string]string{"current_password": "password123", "new_password": "new-password-456"}
	w = doRequest(t, h, http.MethodPut, "/auth/password", change, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodPut, "/auth/password", change, token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "new-password-456",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_BadRequests(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"register invalid json", "/auth/register", "invalid json"},
		{"register missing name", "/auth/register", map[string]string{"email": "a@example.com", "password": "password123"}},
		{"register bad email", "/auth/register", map[string]string{"name": "A", "email": "not-an-email", "password": "password123"}},
		{"register short password", "/auth/register", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}},
		{"login invalid json", "/auth/login", "{"},
		{"login missing password", "/auth/login", map[string]string{"email": "a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, DefaultLimit: 2, DefaultWindowSecs: 60}
	h := newTestServer(t, cfg, nil, nil)

	body := map[string]string{"text": "cash"}
	for i := 0; i < 2; i++ {
		w := doRequest(t, h, http.MethodPost, "/api/validate-input", body, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doRequest(t, h, http.MethodPost, "/api/validate-input", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody(t, w)["error"])

	w = doRequest(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code, "health is never throttled")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/categorize-transaction", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
