package config

import (
	"testing"
	"time"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bazaar")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.SupabaseURL != "https://proj.supabase.co" {
		t.Fatalf("trailing slash should be stripped, got %q", cfg.SupabaseURL)
	}
	if cfg.TransferFeeRate != 0.05 {
		t.Fatalf("TransferFeeRate = %v, want default 0.05", cfg.TransferFeeRate)
	}
	if !cfg.EnsureSchema {
		t.Fatalf("EnsureSchema should default to true")
	}
	if cfg.StarterGold != 100 {
		t.Fatalf("StarterGold = %d, want default 100", cfg.StarterGold)
	}
	if !cfg.SeedItems {
		t.Fatalf("SeedItems should default to true")
	}
}

func TestLoadAPIFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bazaar")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("BAZAAR_STARTER_GOLD", "250")
	t.Setenv("BAZAAR_STARTUP_SEED_ITEMS", "false")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StarterGold != 250 {
		t.Fatalf("StarterGold = %d, want 250", cfg.StarterGold)
	}
	if cfg.SeedItems {
		t.Fatalf("SeedItems should be disabled")
	}

	t.Setenv("BAZAAR_STARTER_GOLD", "not-a-number")
	cfg, err = LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StarterGold != 100 {
		t.Fatalf("bad value should fall back to default, got %d", cfg.StarterGold)
	}
}

func TestLoadAPIFromEnvMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bazaar")
	t.Setenv("BAZAAR_SWEEP_EVERY", "30s")
	t.Setenv("BAZAAR_HISTORY_SNAPSHOT_EVERY", "not-a-duration")

	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SweepEvery != 30*time.Second {
		t.Fatalf("SweepEvery = %v, want 30s", cfg.SweepEvery)
	}
	if cfg.HistoryEvery != time.Hour {
		t.Fatalf("bad duration should fall back to default, got %v", cfg.HistoryEvery)
	}
	if cfg.DemandEvery != 5*time.Minute {
		t.Fatalf("DemandEvery = %v, want default 5m", cfg.DemandEvery)
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("BZR_API_BASE_URL", "https://bazaar.example.com/")
	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "https://bazaar.example.com" {
		t.Fatalf("APIBaseURL = %q, want trailing slash stripped", cfg.APIBaseURL)
	}
}
