package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "pricing")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "storformat")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.TenantID != "default" {
		t.Errorf("TenantID = %q, want default", cfg.TenantID)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute = %d, want 120", cfg.RateLimitPerMinute)
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ADMIN_IDS", "1001,1002")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[0] != 1001 || cfg.AdminIDs[1] != 1002 {
		t.Errorf("AdminIDs = %v, want [1001 1002]", cfg.AdminIDs)
	}
}

func TestLoad_NotificationsWithoutAdmins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a token without admin IDs")
	}
}
