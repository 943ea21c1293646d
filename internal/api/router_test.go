package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Audricteel/client-voice-tracker/internal/auth"
	"github.com/Audricteel/client-voice-tracker/internal/config"
	"github.com/Audricteel/client-voice-tracker/internal/db"
	"github.com/Audricteel/client-voice-tracker/internal/service"
	"github.com/Audricteel/client-voice-tracker/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		ListenAddr:          ":8080",
		SessionCookieName:   "cvt_session",
		CSRFCookieName:      "cvt_csrf",
		SessionIdleMinutes:  30,
		SessionAbsoluteHour: 24,
		CookieSecureMode:    "never",
		TrustProxy:          false,
		PasswordMinLength:   8,
		PasswordMaxLength:   128,
	}
}

func newTestRouter(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	st := store.New(sqdb)
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := st.SeedDefaultUsers(context.Background(), hash); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	cfg := testConfig()
	svc := service.New(cfg, st)
	return NewRouter(cfg, svc), st
}

type authedClient struct {
	cookies []*http.Cookie
	csrf    string
}

func loginAs(t *testing.T, router http.Handler, email, password string) authedClient {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: got %d body=%s", email, rec.Code, rec.Body.String())
	}
	var out struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return authedClient{cookies: rec.Result().Cookies(), csrf: out.CSRFToken}
}

func (c authedClient) do(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		body, _ := json.Marshal(payload)
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
