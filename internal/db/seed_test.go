package db

import (
	"context"
	"os"
	"testing"
)

func TestSeedCatalog(t *testing.T) {
	url := os.Getenv("BAZAAR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BAZAAR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if err := SeedCatalog(ctx, pool); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	var items, offers int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&items); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM black_market_offers`).Scan(&offers); err != nil {
		t.Fatalf("count offers: %v", err)
	}
	if items < int64(len(seedItems)) {
		t.Fatalf("items = %d, want at least the %d seeded", items, len(seedItems))
	}
	if offers < 1 {
		t.Fatalf("expected at least one black market offer after seeding")
	}

	// Re-running must not duplicate anything.
	if err := SeedCatalog(ctx, pool); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var items2, offers2 int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&items2); err != nil {
		t.Fatalf("recount items: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM black_market_offers`).Scan(&offers2); err != nil {
		t.Fatalf("recount offers: %v", err)
	}
	if items2 != items || offers2 != offers {
		t.Fatalf("reseed changed counts: items %d -> %d, offers %d -> %d",
			items, items2, offers, offers2)
	}
}
