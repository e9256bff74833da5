package economy

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bazaar/internal/db"
)

// testService connects to the database named by BAZAAR_TEST_DATABASE_URL and
// skips the test when it is unset.
func testService(t *testing.T, opts ...Option) (*Service, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("BAZAAR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BAZAAR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(pool, logger, opts...), pool
}

// makeTrader creates a user with enough XP to pass the trading gate, an item
// and a starting inventory of it.
func makeTrader(t *testing.T, svc *Service, pool *pgxpool.Pool, qty int64) (userID string, itemID int64) {
	t.Helper()
	ctx := context.Background()
	userID = "test-" + uuid.NewString()
	if err := svc.EnsureUser(ctx, userID, ""); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	err := pool.QueryRow(ctx, `
		INSERT INTO items (name, base_price, rarity)
		VALUES ($1, 100, 'COMMON')
		RETURNING id
	`, "Test Relic "+uuid.NewString()).Scan(&itemID)
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	err = svc.GrantReward(ctx, RewardGrant{
		UserID:         userID,
		XP:             MinTradeLevel * XPPerLevel,
		ItemID:         itemID,
		Quantity:       qty,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("grant reward: %v", err)
	}
	return userID, itemID
}

func TestEnsureUserStarterGold(t *testing.T) {
	svc, _ := testService(t, WithStarterGold(100))
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	if err := svc.EnsureUser(ctx, userID, "first@example.com"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := svc.EnsureUser(ctx, userID, "first@example.com"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	w, err := svc.Wallet(ctx, userID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Gold != 100 {
		t.Fatalf("gold = %d, want the grant applied exactly once (100)", w.Gold)
	}

	entries, err := svc.LedgerHistory(ctx, userID, 50)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != LedgerEarned {
		t.Fatalf("expected a single EARNED ledger entry, got %+v", entries)
	}
}

func TestCancelListingKeepsQuantity(t *testing.T) {
	svc, pool := testService(t)
	ctx := context.Background()
	sellerID, itemID := makeTrader(t, svc, pool, 5)

	listing, err := svc.CreateListing(ctx, CreateListingInput{
		SellerID:       sellerID,
		ItemID:         itemID,
		Quantity:       3,
		PricePerUnit:   100,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := svc.CancelListing(ctx, listing.ID, sellerID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var status string
	var quantity int64
	err = pool.QueryRow(ctx, `
		SELECT status, quantity FROM listings WHERE id = $1
	`, listing.ID).Scan(&status, &quantity)
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	if status != string(ListingCancelled) {
		t.Fatalf("status = %q, want CANCELLED", status)
	}
	if quantity != 3 {
		t.Fatalf("quantity = %d, want the unsold stock recorded (3)", quantity)
	}

	var held int64
	err = pool.QueryRow(ctx, `
		SELECT quantity FROM inventories WHERE user_id = $1 AND item_id = $2
	`, sellerID, itemID).Scan(&held)
	if err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	if held != 5 {
		t.Fatalf("inventory = %d, want the reserved stock returned (5)", held)
	}
}

func TestSweepExpiredListingsCount(t *testing.T) {
	svc, pool := testService(t)
	ctx := context.Background()
	sellerID, itemID := makeTrader(t, svc, pool, 4)

	listing, err := svc.CreateListing(ctx, CreateListingInput{
		SellerID:       sellerID,
		ItemID:         itemID,
		Quantity:       4,
		PricePerUnit:   100,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		UPDATE listings SET expires_at = now() - interval '1 hour' WHERE id = $1
	`, listing.ID); err != nil {
		t.Fatalf("backdate listing: %v", err)
	}

	n, err := svc.SweepExpiredListings(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n < 1 {
		t.Fatalf("sweep expired %d listings, want at least the backdated one", n)
	}

	// A second sweep finds nothing new for this listing.
	var status string
	err = pool.QueryRow(ctx, `SELECT status FROM listings WHERE id = $1`, listing.ID).Scan(&status)
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	if status != string(ListingExpired) {
		t.Fatalf("status = %q, want EXPIRED", status)
	}
}
