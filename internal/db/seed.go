package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedItem struct {
	name        string
	description string
	basePrice   int64
	rarity      string
}

var seedItems = []seedItem{
	{"Wooden Plank", "Basic crafting material", 10, "COMMON"},
	{"Iron Ingot", "Refined metal for crafting", 25, "UNCOMMON"},
	{"Crystal Shard", "A rare magical crystal", 100, "RARE"},
	{"Lucky Coin", "+25% chance of better rewards", 200, "RARE"},
	{"Neon Shades", "Glow-in-the-dark glasses", 300, "RARE"},
	{"XP Booster", "Doubles XP gains for a day", 500, "EPIC"},
	{"Magic Hat", "A stylish hat for your avatar", 150, "UNCOMMON"},
	{"Golden Crown", "A crown fit for a king", 1000, "LEGENDARY"},
}

// SeedCatalog inserts the starter item catalog and, when no offer exists yet,
// a first black market rotation. Re-runs are no-ops: items dedupe by name and
// the offer is only created into an empty table.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	for _, it := range seedItems {
		_, err := pool.Exec(ctx, `
			INSERT INTO items (name, description, base_price, rarity, tradeable)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (name) DO NOTHING
		`, it.name, it.description, it.basePrice, it.rarity)
		if err != nil {
			return fmt.Errorf("seed item %q: %w", it.name, err)
		}
	}

	var offers int64
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM black_market_offers`).Scan(&offers); err != nil {
		return err
	}
	if offers > 0 {
		return nil
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO black_market_offers
		    (name, description, rarity, price, gem_price, discount, stock,
		     featured, active, available_from, available_to)
		VALUES ('Golden Crown', 'A crown fit for a king', 'LEGENDARY',
		        1000, 100, 30, 5, true, true, now(), now() + interval '7 days')
	`)
	if err != nil {
		return fmt.Errorf("seed black market offer: %w", err)
	}
	return nil
}
