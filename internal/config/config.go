package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr            string
	DatabaseURL     string
	SupabaseURL     string
	SupabaseAnonKey string
	TransferFeeRate float64
	StarterGold     int64
	EnsureSchema    bool
	SeedItems       bool
}

type WorkerConfig struct {
	DatabaseURL     string
	TransferFeeRate float64
	EnsureSchema    bool
	SweepEvery      time.Duration
	DemandEvery     time.Duration
	HistoryEvery    time.Duration
	ReputationEvery time.Duration
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("BAZAAR_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:            addr,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		TransferFeeRate: envFloatDefault("BAZAAR_TRANSFER_FEE_RATE", 0.05),
		StarterGold:     envInt64Default("BAZAAR_STARTER_GOLD", 100),
		EnsureSchema:    envBoolDefault("BAZAAR_STARTUP_ENSURE_SCHEMA", true),
		SeedItems:       envBoolDefault("BAZAAR_STARTUP_SEED_ITEMS", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TransferFeeRate: envFloatDefault("BAZAAR_TRANSFER_FEE_RATE", 0.05),
		EnsureSchema:    envBoolDefault("BAZAAR_STARTUP_ENSURE_SCHEMA", true),
		SweepEvery:      envDurationDefault("BAZAAR_SWEEP_EVERY", time.Minute),
		DemandEvery:     envDurationDefault("BAZAAR_DEMAND_REFRESH_EVERY", 5*time.Minute),
		HistoryEvery:    envDurationDefault("BAZAAR_HISTORY_SNAPSHOT_EVERY", time.Hour),
		ReputationEvery: envDurationDefault("BAZAAR_REPUTATION_SCAN_EVERY", time.Hour),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("BZR_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
