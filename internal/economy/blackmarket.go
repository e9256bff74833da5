package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BlackMarketFinalPrice applies the offer's percentage discount.
func BlackMarketFinalPrice(price int64, discount int) int64 {
	if discount <= 0 {
		return price
	}
	if discount > 100 {
		discount = 100
	}
	return price * int64(100-discount) / 100
}

// offerPrice resolves what one unit costs in the chosen currency. The
// discount applies to gold and gem prices alike.
func offerPrice(goldPrice, gemPrice int64, discount int, c Currency) (int64, error) {
	if c == CurrencyGems {
		if gemPrice <= 0 {
			return 0, fmt.Errorf("%w: offer has no gem price", ErrInvalidCurrency)
		}
		return BlackMarketFinalPrice(gemPrice, discount), nil
	}
	return BlackMarketFinalPrice(goldPrice, discount), nil
}

// offerWindowOpen reports whether now falls inside [from, to], inclusive on
// both ends.
func offerWindowOpen(from, to, now time.Time) bool {
	return !now.Before(from) && !now.After(to)
}

func timeLeft(until time.Time, now time.Time) string {
	d := until.Sub(now)
	if d <= 0 {
		return "expired"
	}
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
	}
	if d >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// BlackMarketOffers lists offers inside their availability window with
// stock remaining.
func (s *Service) BlackMarketOffers(ctx context.Context) ([]BlackMarketOfferView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, rarity, price, gem_price, discount,
		       stock, sold_count, featured, available_from, available_to
		FROM black_market_offers
		WHERE active AND available_from <= now() AND available_to >= now()
		  AND sold_count < stock
		ORDER BY featured DESC, available_to ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var out []BlackMarketOfferView
	for rows.Next() {
		var v BlackMarketOfferView
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &v.Rarity, &v.Price,
			&v.GemPrice, &v.Discount, &v.Stock, &v.SoldCount, &v.Featured,
			&v.AvailableFrom, &v.AvailableTo); err != nil {
			return nil, err
		}
		v.FinalPrice = BlackMarketFinalPrice(v.Price, v.Discount)
		v.StockRemaining = v.Stock - v.SoldCount
		v.TimeLeft = timeLeft(v.AvailableTo, now)
		out = append(out, v)
	}
	return out, rows.Err()
}

// PurchaseBlackMarketOffer sells one unit of a limited offer. The guarded
// sold_count bump is what enforces the stock limit under concurrency: two
// buyers racing for the last unit produce exactly one updated row.
func (s *Service) PurchaseBlackMarketOffer(ctx context.Context, in BlackMarketPurchaseInput) (BlackMarketPurchaseResult, error) {
	var out BlackMarketPurchaseResult
	if in.Currency != CurrencyGold && in.Currency != CurrencyGems {
		return out, ErrInvalidCurrency
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.BuyerID, in.IdempotencyKey, "blackmarket_purchase"); err != nil {
			return err
		}

		var o struct {
			name        string
			description string
			rarity      Rarity
			price       int64
			gemPrice    int64
			discount    int
			stock       int64
			soldCount   int64
			active      bool
			from        time.Time
			to          time.Time
		}
		err := tx.QueryRow(ctx, `
			SELECT name, description, rarity, price, gem_price, discount,
			       stock, sold_count, active, available_from, available_to
			FROM black_market_offers
			WHERE id = $1
			FOR UPDATE
		`, in.OfferID).Scan(&o.name, &o.description, &o.rarity, &o.price, &o.gemPrice,
			&o.discount, &o.stock, &o.soldCount, &o.active, &o.from, &o.to)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrOfferNotFound
			}
			return err
		}

		if !o.active || !offerWindowOpen(o.from, o.to, time.Now()) {
			return ErrOfferUnavailable
		}
		if o.soldCount >= o.stock {
			return ErrOutOfStock
		}

		pricePaid, err := offerPrice(o.price, o.gemPrice, o.discount, in.Currency)
		if err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, `
			UPDATE black_market_offers
			SET sold_count = sold_count + 1, updated_at = now()
			WHERE id = $1 AND sold_count < stock
		`, in.OfferID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrOutOfStock
		}

		txGroupID := uuid.NewString()
		if err := debitTx(ctx, tx, txGroupID, in.BuyerID, pricePaid, in.Currency, LedgerSpent,
			fmt.Sprintf("Black market: %s", o.name)); err != nil {
			return err
		}

		// Offers carry item definitions, not catalog ids. The matching item
		// row is created lazily on first purchase, deduplicated by name.
		var itemID int64
		err = tx.QueryRow(ctx, `SELECT id FROM items WHERE name = $1`, o.name).Scan(&itemID)
		if err == pgx.ErrNoRows {
			err = tx.QueryRow(ctx, `
				INSERT INTO items (name, description, base_price, rarity, tradeable)
				VALUES ($1, $2, $3, $4, true)
				ON CONFLICT (name) DO UPDATE SET updated_at = now()
				RETURNING id
			`, o.name, o.description, o.price, o.rarity).Scan(&itemID)
		}
		if err != nil {
			return err
		}
		if err := grantTx(ctx, tx, in.BuyerID, itemID, 1); err != nil {
			return err
		}

		goldAmount, gemAmount := pricePaid, int64(0)
		if in.Currency == CurrencyGems {
			goldAmount, gemAmount = 0, pricePaid
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO black_market_purchases
			    (offer_id, buyer_id, item_id, price_paid, currency)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, in.OfferID, in.BuyerID, itemID, pricePaid, in.Currency).Scan(&out.PurchaseID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO trading_transactions
			    (seller_id, buyer_id, item_id, quantity, gold_amount, gem_amount, kind)
			VALUES (NULL, $1, $2, 1, $3, $4, 'BLACKMARKET')
		`, in.BuyerID, itemID, goldAmount, gemAmount); err != nil {
			return err
		}

		out.ItemID = itemID
		out.OfferName = o.name
		out.PricePaid = pricePaid
		out.Currency = in.Currency
		return queueNotification(ctx, tx, in.BuyerID, "BLACKMARKET",
			"Black market purchase",
			fmt.Sprintf("You bought %s for %d %s", o.name, pricePaid, in.Currency),
			map[string]any{"offer_id": in.OfferID, "item_id": itemID})
	})
	if err != nil {
		return BlackMarketPurchaseResult{}, err
	}
	return out, nil
}
