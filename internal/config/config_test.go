package config

import (
	"net/http/httptest"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.SessionCookieName != "cvt_session" || cfg.CSRFCookieName != "cvt_csrf" {
		t.Fatalf("unexpected cookie names: %q %q", cfg.SessionCookieName, cfg.CSRFCookieName)
	}
	if cfg.SessionIdleDuration().Minutes() != 30 {
		t.Fatalf("unexpected idle duration: %v", cfg.SessionIdleDuration())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_IDLE_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero idle minutes")
	}
	t.Setenv("SESSION_IDLE_MINUTES", "30")

	t.Setenv("COOKIE_SECURE_MODE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad cookie secure mode")
	}
	t.Setenv("COOKIE_SECURE_MODE", "auto")

	t.Setenv("PASSWORD_MIN_LENGTH", "4")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for weak password minimum")
	}
}

func TestResolveCookieSecure(t *testing.T) {
	cfg := Config{CookieSecureMode: "auto"}

	r := httptest.NewRequest("GET", "http://localhost:8080/", nil)
	if cfg.ResolveCookieSecure(r) {
		t.Fatalf("plain-http localhost should not be secure in auto mode")
	}

	r = httptest.NewRequest("GET", "http://app.internal.example/", nil)
	if !cfg.ResolveCookieSecure(r) {
		t.Fatalf("non-local host should be secure in auto mode")
	}

	cfg.CookieSecureMode = "never"
	if cfg.ResolveCookieSecure(r) {
		t.Fatalf("never mode must not mark cookies secure")
	}
	cfg.CookieSecureMode = "always"
	r = httptest.NewRequest("GET", "http://127.0.0.1:8080/", nil)
	if !cfg.ResolveCookieSecure(r) {
		t.Fatalf("always mode must mark cookies secure")
	}
}
