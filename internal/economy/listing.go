package economy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateListing reserves the seller's inventory and opens an ACTIVE listing
// in one transaction. The anti-abuse gate runs first; a zero price asks the
// pricing engine for the recommended one.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (ListingView, error) {
	var out ListingView
	if in.Quantity <= 0 {
		return out, ErrInvalidQuantity
	}
	if in.PricePerUnit < 0 || in.GemPrice < 0 {
		return out, ErrInvalidPrice
	}

	if err := s.CanTrade(ctx, in.SellerID); err != nil {
		return out, err
	}

	var itemName string
	var basePrice int64
	var tradeable bool
	err := s.db.QueryRow(ctx, `
		SELECT name, base_price, tradeable FROM items WHERE id = $1
	`, in.ItemID).Scan(&itemName, &basePrice, &tradeable)
	if err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrItemNotFound
		}
		return out, err
	}
	if !tradeable {
		return out, fmt.Errorf("%w: %s", ErrNotTradeable, itemName)
	}

	price := in.PricePerUnit
	if price == 0 {
		quote, err := s.RecommendedPrice(ctx, in.ItemID)
		if err != nil {
			return out, err
		}
		price = quote.RecommendedPrice
	}
	if err := ValidatePrice(basePrice, price); err != nil {
		return out, err
	}

	ttlDays := in.ExpiresInDays
	if ttlDays <= 0 {
		ttlDays = DefaultListingTTLDays
	}
	expiresAt := time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)

	err = s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.SellerID, in.IdempotencyKey, "create_listing"); err != nil {
			return err
		}
		if err := reserveTx(ctx, tx, in.SellerID, in.ItemID, in.Quantity); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO listings
			    (seller_id, item_id, quantity, price_per_unit, gem_price,
			     original_price, title, description, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $4, $6, $7, 'ACTIVE', $8)
			RETURNING id, created_at
		`, in.SellerID, in.ItemID, in.Quantity, price, in.GemPrice,
			strings.TrimSpace(in.Title), strings.TrimSpace(in.Description), expiresAt).
			Scan(&out.ID, &out.CreatedAt)
	})
	if err != nil {
		return ListingView{}, err
	}

	out.SellerID = in.SellerID
	out.ItemID = in.ItemID
	out.ItemName = itemName
	out.Quantity = in.Quantity
	out.PricePerUnit = price
	out.GemPrice = in.GemPrice
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Status = ListingActive
	out.ExpiresAt = &expiresAt
	return out, nil
}

// BuyListing settles a marketplace purchase in one transaction: debit buyer,
// credit seller, move stock, record the trading transaction and reputation
// updates. The listing row is locked and re-read so two buyers racing for the
// last unit cannot both win.
func (s *Service) BuyListing(ctx context.Context, in BuyListingInput) (BuyListingResult, error) {
	var out BuyListingResult
	if in.Quantity <= 0 {
		return out, ErrInvalidQuantity
	}
	if in.Currency != CurrencyGold && in.Currency != CurrencyGems {
		return out, ErrInvalidCurrency
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.BuyerID, in.IdempotencyKey, "buy_listing"); err != nil {
			return err
		}

		var l struct {
			sellerID     string
			itemID       int64
			quantity     int64
			pricePerUnit int64
			gemPrice     int64
			status       ListingStatus
			expiresAt    *time.Time
		}
		err := tx.QueryRow(ctx, `
			SELECT seller_id, item_id, quantity, price_per_unit, gem_price, status, expires_at
			FROM listings
			WHERE id = $1
			FOR UPDATE
		`, in.ListingID).Scan(&l.sellerID, &l.itemID, &l.quantity, &l.pricePerUnit,
			&l.gemPrice, &l.status, &l.expiresAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrListingNotFound
			}
			return err
		}
		if l.status != ListingActive {
			return ErrListingNotActive
		}
		if l.expiresAt != nil && l.expiresAt.Before(time.Now()) {
			return ErrListingExpired
		}
		if l.sellerID == in.BuyerID {
			return ErrOwnListing
		}
		if in.Quantity > l.quantity {
			return fmt.Errorf("%w: %d remaining", ErrInsufficientStock, l.quantity)
		}

		unitPrice := l.pricePerUnit
		if in.Currency == CurrencyGems {
			if l.gemPrice <= 0 {
				return fmt.Errorf("%w: listing has no gem price", ErrInvalidCurrency)
			}
			unitPrice = l.gemPrice
		}
		totalPrice := unitPrice * in.Quantity

		var itemName string
		if err := tx.QueryRow(ctx, `SELECT name FROM items WHERE id = $1`, l.itemID).Scan(&itemName); err != nil {
			return err
		}

		txGroupID := uuid.NewString()
		if err := debitTx(ctx, tx, txGroupID, in.BuyerID, totalPrice, in.Currency, LedgerSpent,
			fmt.Sprintf("Bought %dx %s from marketplace", in.Quantity, itemName)); err != nil {
			return err
		}
		// The seller receives the full price: the 5% fee formula exists but
		// is not applied on the marketplace path.
		if err := creditTx(ctx, tx, txGroupID, l.sellerID, totalPrice, in.Currency, LedgerEarned,
			fmt.Sprintf("Sold %dx %s on marketplace", in.Quantity, itemName)); err != nil {
			return err
		}
		if err := grantTx(ctx, tx, in.BuyerID, l.itemID, in.Quantity); err != nil {
			return err
		}

		remaining := l.quantity - in.Quantity
		if remaining == 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE listings
				SET quantity = 0, status = 'SOLD', buyer_id = $1, sold_at = now(), updated_at = now()
				WHERE id = $2
			`, in.BuyerID, in.ListingID); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, `
				UPDATE listings
				SET quantity = $1, updated_at = now()
				WHERE id = $2
			`, remaining, in.ListingID); err != nil {
				return err
			}
		}

		goldAmount, gemAmount := totalPrice, int64(0)
		if in.Currency == CurrencyGems {
			goldAmount, gemAmount = 0, totalPrice
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO trading_transactions
			    (listing_id, seller_id, buyer_id, item_id, quantity, gold_amount, gem_amount, kind)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'MARKETPLACE')
			RETURNING id
		`, in.ListingID, l.sellerID, in.BuyerID, l.itemID, in.Quantity, goldAmount, gemAmount).
			Scan(&out.TransactionID); err != nil {
			return err
		}

		if err := recordPurchaseTx(ctx, tx, in.BuyerID, goldAmount); err != nil {
			return err
		}
		if err := recordSaleTx(ctx, tx, l.sellerID, goldAmount); err != nil {
			return err
		}

		if err := queueNotification(ctx, tx, l.sellerID, "MARKET",
			"Item sold",
			fmt.Sprintf("Sold %dx %s for %d %s", in.Quantity, itemName, totalPrice, in.Currency),
			map[string]any{"listing_id": in.ListingID, "buyer_id": in.BuyerID}); err != nil {
			return err
		}

		out.Listing = ListingView{
			ID:           in.ListingID,
			SellerID:     l.sellerID,
			ItemID:       l.itemID,
			ItemName:     itemName,
			Quantity:     remaining,
			PricePerUnit: l.pricePerUnit,
			GemPrice:     l.gemPrice,
			Status:       ListingActive,
		}
		if remaining == 0 {
			out.Listing.Status = ListingSold
		}
		out.TotalPrice = totalPrice
		out.Currency = in.Currency
		return tx.QueryRow(ctx,
			`SELECT `+balanceColumn(in.Currency)+` FROM users WHERE id = $1`,
			in.BuyerID).Scan(&out.BuyerBalance)
	})
	if err != nil {
		return BuyListingResult{}, err
	}
	s.notify.Notify(ctx, out.Listing.SellerID, "Item sold",
		fmt.Sprintf("%dx %s sold for %d %s", in.Quantity, out.Listing.ItemName, out.TotalPrice, in.Currency))
	return out, nil
}

// CancelListing returns the remaining stock to the seller and closes the
// listing. Only the seller may cancel, and only while ACTIVE.
func (s *Service) CancelListing(ctx context.Context, listingID int64, sellerID string) error {
	return s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		var ownerID string
		var itemID, quantity int64
		var status ListingStatus
		err := tx.QueryRow(ctx, `
			SELECT seller_id, item_id, quantity, status
			FROM listings
			WHERE id = $1
			FOR UPDATE
		`, listingID).Scan(&ownerID, &itemID, &quantity, &status)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrListingNotFound
			}
			return err
		}
		if ownerID != sellerID {
			return ErrUnauthorized
		}
		if status != ListingActive {
			return ErrListingNotActive
		}
		if quantity > 0 {
			if err := grantTx(ctx, tx, sellerID, itemID, quantity); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE listings
			SET status = 'CANCELLED', updated_at = now()
			WHERE id = $1
		`, listingID)
		return err
	})
}

// SweepExpiredListings expires every ACTIVE listing past its deadline and
// returns the remaining stock to its seller. The status guard in the UPDATE
// makes the sweep safe to race with a concurrent buy: whichever transaction
// commits first wins, the other sees the new status.
func (s *Service) SweepExpiredListings(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM listings
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		// The closure can rerun on a serialization retry, so the counter
		// only moves after the transaction commits.
		var swept bool
		err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
			swept = false
			var sellerID string
			var itemID, quantity int64
			err := tx.QueryRow(ctx, `
				UPDATE listings
				SET status = 'EXPIRED', updated_at = now()
				WHERE id = $1 AND status = 'ACTIVE' AND expires_at <= now()
				RETURNING seller_id, item_id, quantity
			`, id).Scan(&sellerID, &itemID, &quantity)
			if err == pgx.ErrNoRows {
				// A buy or cancel got there first.
				return nil
			}
			if err != nil {
				return err
			}
			if quantity > 0 {
				if err := grantTx(ctx, tx, sellerID, itemID, quantity); err != nil {
					return err
				}
			}
			swept = true
			return queueNotification(ctx, tx, sellerID, "MARKET",
				"Listing expired",
				fmt.Sprintf("Your listing of %dx item returned to your inventory", quantity),
				map[string]any{"listing_id": id})
		})
		if err != nil {
			return expired, err
		}
		if swept {
			expired++
		}
	}
	return expired, nil
}

// BrowseListings returns ACTIVE listings matching the filters.
func (s *Service) BrowseListings(ctx context.Context, f ListingFilters) (ListingPage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	where := "l.status = 'ACTIVE' AND l.quantity > 0"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Rarity != "" {
		where += " AND i.rarity = " + arg(string(f.Rarity))
	}
	if f.MinPrice > 0 {
		where += " AND l.price_per_unit >= " + arg(f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where += " AND l.price_per_unit <= " + arg(f.MaxPrice)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + q + "%")
		where += fmt.Sprintf(" AND (i.name ILIKE %s OR l.title ILIKE %s OR l.description ILIKE %s)", p, p, p)
	}

	orderBy := "l.created_at DESC"
	switch f.SortBy {
	case "price_asc":
		orderBy = "l.price_per_unit ASC"
	case "price_desc":
		orderBy = "l.price_per_unit DESC"
	case "popularity":
		orderBy = "l.views DESC"
	}

	var total int64
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings l JOIN items i ON i.id = l.item_id WHERE `+where,
		args...).Scan(&total); err != nil {
		return ListingPage{}, err
	}

	query := fmt.Sprintf(`
		SELECT l.id, l.seller_id, l.item_id, i.name, l.quantity, l.price_per_unit,
		       l.gem_price, l.title, l.description, l.views, l.status, l.expires_at, l.created_at
		FROM listings l
		JOIN items i ON i.id = l.item_id
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s
	`, where, orderBy, arg(perPage), arg((page-1)*perPage))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return ListingPage{}, err
	}
	defer rows.Close()

	out := ListingPage{Page: page, PerPage: perPage, Total: total}
	for rows.Next() {
		var v ListingView
		if err := rows.Scan(&v.ID, &v.SellerID, &v.ItemID, &v.ItemName, &v.Quantity,
			&v.PricePerUnit, &v.GemPrice, &v.Title, &v.Description, &v.Views,
			&v.Status, &v.ExpiresAt, &v.CreatedAt); err != nil {
			return ListingPage{}, err
		}
		out.Listings = append(out.Listings, v)
	}
	if err := rows.Err(); err != nil {
		return ListingPage{}, err
	}
	out.TotalPages = int64(math.Ceil(float64(total) / float64(perPage)))
	return out, nil
}

// ListingDetail fetches one listing and bumps its view counter. The bump
// feeds views_24h in the demand model.
func (s *Service) ListingDetail(ctx context.Context, listingID int64) (ListingView, error) {
	var v ListingView
	err := s.db.QueryRow(ctx, `
		UPDATE listings l
		SET views = l.views + 1
		FROM items i
		WHERE l.id = $1 AND i.id = l.item_id
		RETURNING l.id, l.seller_id, l.item_id, i.name, l.quantity, l.price_per_unit,
		          l.gem_price, l.title, l.description, l.views, l.status, l.expires_at, l.created_at
	`, listingID).Scan(&v.ID, &v.SellerID, &v.ItemID, &v.ItemName, &v.Quantity,
		&v.PricePerUnit, &v.GemPrice, &v.Title, &v.Description, &v.Views,
		&v.Status, &v.ExpiresAt, &v.CreatedAt)
	if err == pgx.ErrNoRows {
		return v, ErrListingNotFound
	}
	return v, err
}

// MarketStats summarizes the last 24h of marketplace activity.
func (s *Service) MarketStats(ctx context.Context) (MarketStats, error) {
	var out MarketStats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM listings WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM trading_transactions WHERE created_at >= now() - interval '24 hours'),
			(SELECT COALESCE(SUM(gold_amount), 0) FROM trading_transactions WHERE created_at >= now() - interval '24 hours')
	`).Scan(&out.ActiveListings, &out.Transactions24h, &out.GoldVolume24h)
	if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT d.item_id, i.name, d.price_change_24h, d.popularity_score
		FROM market_demand d
		JOIN items i ON i.id = d.item_id
		WHERE d.popularity_score > 60
		ORDER BY d.popularity_score DESC
		LIMIT 5
	`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var t TrendingItem
		if err := rows.Scan(&t.ItemID, &t.ItemName, &t.PriceChange24h, &t.PopularityScore); err != nil {
			return out, err
		}
		out.TrendingItems = append(out.TrendingItems, t)
	}
	return out, rows.Err()
}

// Watch puts an item on the user's watchlist; watch counts raise demand.
func (s *Service) Watch(ctx context.Context, userID string, itemID, maxPrice int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO watchlists (user_id, item_id, max_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE SET max_price = EXCLUDED.max_price
	`, userID, itemID, maxPrice)
	return err
}

func (s *Service) Unwatch(ctx context.Context, userID string, itemID int64) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM watchlists WHERE user_id = $1 AND item_id = $2
	`, userID, itemID)
	return err
}

func (s *Service) UserWatchlist(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.item_id, i.name, COALESCE(w.max_price, 0)
		FROM watchlists w
		JOIN items i ON i.id = w.item_id
		WHERE w.user_id = $1
		ORDER BY i.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.ItemID, &e.ItemName, &e.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
