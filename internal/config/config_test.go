package config

import (
	"strings"
	"testing"
	"time"
)

const testKey = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEXHUB_ADDR", "LEXHUB_PG_DSN", "LEXHUB_SIGNING_KEY",
		"LEXHUB_SYSTEM_SCHEMA", "LEXHUB_DEFAULT_TENANT",
		"LEXHUB_ACCESS_TOKEN_TTL_MS", "LEXHUB_REFRESH_TOKEN_TTL_MS",
		"LEXHUB_PUBLIC_PATHS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEXHUB_SIGNING_KEY", testKey)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.SystemSchema != "public" {
		t.Fatalf("SystemSchema = %q", cfg.SystemSchema)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 14*24*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if len(cfg.PublicPaths) == 0 || cfg.PublicPaths[0] != "/login" {
		t.Fatalf("PublicPaths = %v", cfg.PublicPaths)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEXHUB_SIGNING_KEY", testKey)
	t.Setenv("LEXHUB_ADDR", ":9999")
	t.Setenv("LEXHUB_SYSTEM_SCHEMA", "control")
	t.Setenv("LEXHUB_ACCESS_TOKEN_TTL_MS", "60000")
	t.Setenv("LEXHUB_PUBLIC_PATHS", "/login, /status/*")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.SystemSchema != "control" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.AccessTokenTTL != time.Minute {
		t.Fatalf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if len(cfg.PublicPaths) != 2 || cfg.PublicPaths[1] != "/status/*" {
		t.Fatalf("PublicPaths = %v", cfg.PublicPaths)
	}
}

func TestLoadRequiresSigningKey(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without signing key")
	}

	t.Setenv("LEXHUB_SIGNING_KEY", "short")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("err = %v, want short-key error", err)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEXHUB_SIGNING_KEY", testKey)

	for _, bad := range []string{"abc", "-5", "0"} {
		t.Setenv("LEXHUB_ACCESS_TOKEN_TTL_MS", bad)
		if _, err := Load(); err == nil {
			t.Fatalf("Load accepted TTL %q", bad)
		}
	}
}
