package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/fleet")
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 8080 || cfg.HTTP.Host != "0.0.0.0" {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Environment != "development" {
		t.Fatalf("environment=%q", cfg.Environment)
	}
	if cfg.Portal.BaseURL != "https://portal.example.test" {
		t.Fatalf("base url not trimmed: %q", cfg.Portal.BaseURL)
	}
	if cfg.Portal.LoginPath != "/Login.aspx" {
		t.Fatalf("login path=%q", cfg.Portal.LoginPath)
	}
	if cfg.Portal.Timeout != 20*time.Second {
		t.Fatalf("timeout=%s", cfg.Portal.Timeout)
	}
	if cfg.Portal.ProbeRPS != 2 {
		t.Fatalf("probe rps=%v", cfg.Portal.ProbeRPS)
	}
	if cfg.Notify.Subject != "fleet.tracker_sync.completed" {
		t.Fatalf("subject=%q", cfg.Notify.Subject)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DB_DSN")
	}
}

func TestLoadRejectsRelativePortalURL(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/fleet")
	t.Setenv("PORTAL_BASE_URL", "portal.example.test")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for relative portal url")
	}
}
