package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "10, 20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
	}
	if cfg.UserCacheTTL != time.Hour {
		t.Fatalf("expected 1h cache ttl, got %v", cfg.UserCacheTTL)
	}
	if !cfg.IsAdmin(10) || !cfg.IsAdmin(20) || cfg.IsAdmin(30) {
		t.Fatalf("unexpected admin ids: %v", cfg.AdminIDs)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := Config{DatabaseDriver: "Postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for postgres without url")
	}
	cfg.DatabaseURL = "postgres://localhost/soulmine"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Fatalf("driver not normalised: %q", cfg.DatabaseDriver)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Config{DatabaseDriver: "mysql"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
