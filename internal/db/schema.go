package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates every table the engine needs. Statements are
// idempotent so startup can run them unconditionally.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT UNIQUE,
		role       TEXT NOT NULL DEFAULT 'user',
		gold       BIGINT NOT NULL DEFAULT 0 CHECK (gold >= 0),
		gems       BIGINT NOT NULL DEFAULT 0 CHECK (gems >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS money_ledger (
		id          BIGSERIAL PRIMARY KEY,
		tx_group_id TEXT NOT NULL,
		user_id     TEXT NOT NULL REFERENCES users(id),
		amount      BIGINT NOT NULL,
		currency    TEXT NOT NULL,
		kind        TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_money_ledger_user_time
		ON money_ledger (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS xp_audits (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		amount     BIGINT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_xp_audits_user_time
		ON xp_audits (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS items (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		base_price  BIGINT NOT NULL CHECK (base_price > 0),
		rarity      TEXT NOT NULL DEFAULT 'COMMON',
		tradeable   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS inventories (
		user_id    TEXT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES items(id),
		quantity   BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS listings (
		id             BIGSERIAL PRIMARY KEY,
		seller_id      TEXT NOT NULL REFERENCES users(id),
		buyer_id       TEXT REFERENCES users(id),
		item_id        BIGINT NOT NULL REFERENCES items(id),
		quantity       BIGINT NOT NULL CHECK (quantity >= 0),
		price_per_unit BIGINT NOT NULL CHECK (price_per_unit > 0),
		gem_price      BIGINT NOT NULL DEFAULT 0,
		original_price BIGINT NOT NULL DEFAULT 0,
		title          TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		views          BIGINT NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'ACTIVE',
		expires_at     TIMESTAMPTZ,
		sold_at        TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_status_item
		ON listings (status, item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_seller_time
		ON listings (seller_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_expiry
		ON listings (expires_at) WHERE status = 'ACTIVE'`,

	`CREATE TABLE IF NOT EXISTS trades (
		id           BIGSERIAL PRIMARY KEY,
		requester_id TEXT NOT NULL REFERENCES users(id),
		recipient_id TEXT NOT NULL REFERENCES users(id),
		message      TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'PENDING',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_requester ON trades (requester_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_recipient ON trades (recipient_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS trade_items (
		id         BIGSERIAL PRIMARY KEY,
		trade_id   BIGINT NOT NULL REFERENCES trades(id),
		item_id    BIGINT NOT NULL REFERENCES items(id),
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		is_offered BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_items_trade ON trade_items (trade_id)`,

	`CREATE TABLE IF NOT EXISTS trading_transactions (
		id          BIGSERIAL PRIMARY KEY,
		listing_id  BIGINT REFERENCES listings(id),
		trade_id    BIGINT REFERENCES trades(id),
		seller_id   TEXT REFERENCES users(id),
		buyer_id    TEXT NOT NULL REFERENCES users(id),
		item_id     BIGINT NOT NULL REFERENCES items(id),
		quantity    BIGINT NOT NULL CHECK (quantity > 0),
		gold_amount BIGINT NOT NULL DEFAULT 0,
		gem_amount  BIGINT NOT NULL DEFAULT 0,
		kind        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_item_time
		ON trading_transactions (item_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_seller ON trading_transactions (seller_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_buyer ON trading_transactions (buyer_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS trading_reputations (
		user_id           TEXT PRIMARY KEY REFERENCES users(id),
		trust_score       INT NOT NULL DEFAULT 100,
		total_sales       BIGINT NOT NULL DEFAULT 0,
		total_purchases   BIGINT NOT NULL DEFAULT 0,
		total_gold_earned BIGINT NOT NULL DEFAULT 0,
		total_gold_spent  BIGINT NOT NULL DEFAULT 0,
		last_trade_at     TIMESTAMPTZ,
		flagged_at        TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS market_demand (
		item_id           BIGINT PRIMARY KEY REFERENCES items(id),
		total_listings    INT NOT NULL DEFAULT 0,
		sales_24h         INT NOT NULL DEFAULT 0,
		sales_7d          INT NOT NULL DEFAULT 0,
		views_24h         INT NOT NULL DEFAULT 0,
		watchlist_count   INT NOT NULL DEFAULT 0,
		current_avg_price BIGINT NOT NULL DEFAULT 0,
		lowest_price      BIGINT NOT NULL DEFAULT 0,
		highest_price     BIGINT NOT NULL DEFAULT 0,
		price_change_24h  DOUBLE PRECISION NOT NULL DEFAULT 0,
		trend             TEXT NOT NULL DEFAULT 'STABLE',
		popularity_score  INT NOT NULL DEFAULT 0,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS item_price_history (
		id             BIGSERIAL PRIMARY KEY,
		item_id        BIGINT NOT NULL REFERENCES items(id),
		period         TEXT NOT NULL,
		period_start   TIMESTAMPTZ NOT NULL,
		period_end     TIMESTAMPTZ NOT NULL,
		average_price  BIGINT NOT NULL DEFAULT 0,
		lowest_price   BIGINT NOT NULL DEFAULT 0,
		highest_price  BIGINT NOT NULL DEFAULT 0,
		median_price   BIGINT NOT NULL DEFAULT 0,
		total_sold     BIGINT NOT NULL DEFAULT 0,
		total_listings BIGINT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (item_id, period, period_start)
	)`,

	`CREATE TABLE IF NOT EXISTS black_market_offers (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		rarity         TEXT NOT NULL DEFAULT 'COMMON',
		price          BIGINT NOT NULL CHECK (price > 0),
		gem_price      BIGINT NOT NULL DEFAULT 0,
		discount       INT NOT NULL DEFAULT 0 CHECK (discount BETWEEN 0 AND 100),
		stock          BIGINT NOT NULL CHECK (stock > 0),
		sold_count     BIGINT NOT NULL DEFAULT 0 CHECK (sold_count >= 0),
		featured       BOOLEAN NOT NULL DEFAULT FALSE,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		available_from TIMESTAMPTZ NOT NULL,
		available_to   TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS black_market_purchases (
		id         BIGSERIAL PRIMARY KEY,
		offer_id   BIGINT NOT NULL REFERENCES black_market_offers(id),
		buyer_id   TEXT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES items(id),
		price_paid BIGINT NOT NULL,
		currency   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS watchlists (
		user_id    TEXT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES items(id),
		max_price  BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		kind       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		payload    JSONB,
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		user_id    TEXT NOT NULL,
		key        TEXT NOT NULL,
		action     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, key)
	)`,
}
