package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvid/transcriptkeeper/internal/session"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	"github.com/corvid/transcriptkeeper/internal/sync"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "projects", "-tmp-a")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.jsonl"), []byte(hubTestBody), 0644))

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := sync.New(store, root)
	_, err = engine.Cycle(context.Background())
	require.NoError(t, err)

	facade := session.New(store, engine, root)

	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	secret, err := GenerateSecret()
	require.NoError(t, err)
	auth := NewAuthenticator([]byte(hash), secret)
	cfg := &Config{PasswordHash: hash, TokenSecret: string(secret)}

	configPath := filepath.Join(t.TempDir(), "bridge.json")
	return NewServer(facade, auth, cfg, configPath, t.TempDir(), "claude")
}

func TestHandleAuthStatusReportsPasswordSet(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body["passwordSet"])
}

func TestHandleLoginRejectsWrongPassword(t *testing.T) {
	s := setupServer(t)
	payload, _ := json.Marshal(loginRequest{Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLoginAcceptsCorrectPassword(t *testing.T) {
	s := setupServer(t)
	payload, _ := json.Marshal(loginRequest{Password: "hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
}

func TestHandleListSessionsRequiresAuth(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleListSessionsSucceedsWithToken(t *testing.T) {
	s := setupServer(t)
	token, _, err := s.Auth.Login("hunter2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?token="+token, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
}

func TestBearerTokenPrefersAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/sessions?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	require.Equal(t, "header-token", bearerToken(req))
}

func TestBearerTokenFallsBackToQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/sessions?token=query-token", nil)
	require.Equal(t, "query-token", bearerToken(req))
}
