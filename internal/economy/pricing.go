package economy

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
)

type Trend string

const (
	TrendRising   Trend = "RISING"
	TrendFalling  Trend = "FALLING"
	TrendVolatile Trend = "VOLATILE"
	TrendStable   Trend = "STABLE"
)

// DemandSignals are the time-windowed aggregates the pricing model is a
// pure function of.
type DemandSignals struct {
	Supply         int
	Sales24h       int
	Sales7d        int
	Views24h       int
	WatchlistCount int
	PriceChange24h float64
}

// DemandMultiplier applies the additive deltas in a fixed order and clamps
// the result to [0.5, 2.0].
func DemandMultiplier(sig DemandSignals) float64 {
	m := 1.0
	if sig.Sales24h > 10 {
		m += 0.3
	}
	if sig.Sales24h > 20 {
		m += 0.3
	}
	if sig.Views24h > 50 {
		m += 0.2
	}
	if sig.WatchlistCount > 10 {
		m += 0.2
	}
	if sig.Supply > 20 {
		m -= 0.2
	}
	if sig.Supply > 50 {
		m -= 0.3
	}
	return math.Max(0.5, math.Min(2.0, m))
}

// PopularityScore maps the same signals onto a 0-100 scale.
func PopularityScore(sig DemandSignals) int {
	score := int(math.Floor(
		float64(sig.Sales24h)*2 +
			float64(sig.Views24h)*0.5 +
			float64(sig.WatchlistCount)*3 -
			float64(sig.Supply)*0.5,
	))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TrendOf classifies the 24h price movement. The rules overlap, so the
// evaluation order is part of the contract.
func TrendOf(priceChange24h float64) Trend {
	switch {
	case priceChange24h > 10:
		return TrendRising
	case priceChange24h < -10:
		return TrendFalling
	case math.Abs(priceChange24h) > 5:
		return TrendVolatile
	default:
		return TrendStable
	}
}

// RecommendedPriceFor derives the advisory price from the base price,
// rarity and current demand.
func RecommendedPriceFor(basePrice int64, rarity Rarity, sig DemandSignals) int64 {
	return int64(math.Floor(float64(basePrice) * RarityMultiplier(rarity) * DemandMultiplier(sig)))
}

// PriceBand is the +-20% advisory window around the recommended price.
func PriceBand(recommended int64) (low, high int64) {
	return int64(math.Floor(float64(recommended) * 0.8)), int64(math.Floor(float64(recommended) * 1.2))
}

// PricingAdvice is a first-match rule list; the rules overlap, so order is
// part of the contract.
func PricingAdvice(trend Trend, multiplier float64, popularity int) string {
	if trend == TrendRising && multiplier > 1.3 {
		return "High demand! You can price above recommended."
	}
	if trend == TrendFalling && multiplier < 0.8 {
		return "Low demand. Consider pricing below average to sell faster."
	}
	if popularity > 80 {
		return "Very popular item! Quick sale expected at recommended price."
	}
	if multiplier > 1.5 {
		return "Market is hot! Premium pricing recommended."
	}
	if multiplier < 0.7 {
		return "Oversupplied market. Lower price for faster sale."
	}
	return "Market is stable. Recommended price should work well."
}

// RecommendedPrice reads the item and its demand row (lazily seeded from
// the base price on first query) and returns the full pricing view. The
// demand seed is the only mutation a price query may perform.
func (s *Service) RecommendedPrice(ctx context.Context, itemID int64) (PriceQuote, error) {
	var out PriceQuote
	var item struct {
		name      string
		basePrice int64
		rarity    Rarity
	}
	err := s.db.QueryRow(ctx, `
		SELECT name, base_price, rarity
		FROM items
		WHERE id = $1
	`, itemID).Scan(&item.name, &item.basePrice, &item.rarity)
	if err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrItemNotFound
		}
		return out, err
	}

	sig, avgPrice, err := s.demandSignals(ctx, itemID, item.basePrice)
	if err != nil {
		return out, err
	}

	mult := DemandMultiplier(sig)
	popularity := PopularityScore(sig)
	trend := TrendOf(sig.PriceChange24h)
	recommended := RecommendedPriceFor(item.basePrice, item.rarity, sig)
	low, high := PriceBand(recommended)

	out = PriceQuote{
		ItemID:           itemID,
		ItemName:         item.name,
		BasePrice:        item.basePrice,
		Rarity:           item.rarity,
		RecommendedPrice: recommended,
		MinRecommended:   low,
		MaxRecommended:   high,
		CurrentAvgPrice:  avgPrice,
		DemandMultiplier: mult,
		RarityMultiplier: RarityMultiplier(item.rarity),
		PopularityScore:  popularity,
		Trend:            trend,
		PriceChange24h:   sig.PriceChange24h,
		Signals:          sig,
		Advice:           PricingAdvice(trend, mult, popularity),
	}
	return out, nil
}

// demandSignals loads the market_demand row for an item, inserting a seed
// row derived from the base price when none exists yet.
func (s *Service) demandSignals(ctx context.Context, itemID, basePrice int64) (DemandSignals, int64, error) {
	var sig DemandSignals
	var avgPrice int64
	err := s.db.QueryRow(ctx, `
		SELECT total_listings, sales_24h, sales_7d, views_24h, watchlist_count,
		       current_avg_price, price_change_24h
		FROM market_demand
		WHERE item_id = $1
	`, itemID).Scan(&sig.Supply, &sig.Sales24h, &sig.Sales7d, &sig.Views24h,
		&sig.WatchlistCount, &avgPrice, &sig.PriceChange24h)
	if err == nil {
		return sig, avgPrice, nil
	}
	if err != pgx.ErrNoRows {
		return sig, 0, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO market_demand (item_id, current_avg_price, lowest_price, highest_price, updated_at)
		VALUES ($1, $2, $2, $2, now())
		ON CONFLICT (item_id) DO NOTHING
	`, itemID, basePrice)
	if err != nil {
		return sig, 0, err
	}
	return DemandSignals{}, basePrice, nil
}

// RefreshMarketDemand recomputes the aggregate signals for every item that
// has market activity. It runs on a schedule and is safe to race with live
// trading: each upsert overwrites the whole row from scratch.
func (s *Service) RefreshMarketDemand(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT item_id FROM listings WHERE status = 'ACTIVE'
		UNION
		SELECT item_id FROM trading_transactions WHERE created_at >= now() - interval '7 days'
		UNION
		SELECT item_id FROM market_demand
	`)
	if err != nil {
		return 0, err
	}
	var itemIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		itemIDs = append(itemIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, itemID := range itemIDs {
		if err := s.refreshItemDemand(ctx, itemID); err != nil {
			return 0, err
		}
	}
	return len(itemIDs), nil
}

func (s *Service) refreshItemDemand(ctx context.Context, itemID int64) error {
	now := time.Now()
	var supply, sales24h, sales7d, views, watchers int
	var avg24h, min24h, max24h float64

	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM listings WHERE item_id = $1 AND status = 'ACTIVE'),
			(SELECT COALESCE(SUM(views), 0) FROM listings WHERE item_id = $1 AND status = 'ACTIVE'),
			(SELECT COUNT(*) FROM trading_transactions WHERE item_id = $1 AND created_at >= $2),
			(SELECT COUNT(*) FROM trading_transactions WHERE item_id = $1 AND created_at >= $3),
			(SELECT COUNT(*) FROM watchlists WHERE item_id = $1),
			(SELECT COALESCE(AVG((gold_amount + gem_amount)::float8 / NULLIF(quantity, 0)), 0)
			   FROM trading_transactions WHERE item_id = $1 AND created_at >= $2),
			(SELECT COALESCE(MIN((gold_amount + gem_amount)::float8 / NULLIF(quantity, 0)), 0)
			   FROM trading_transactions WHERE item_id = $1 AND created_at >= $2),
			(SELECT COALESCE(MAX((gold_amount + gem_amount)::float8 / NULLIF(quantity, 0)), 0)
			   FROM trading_transactions WHERE item_id = $1 AND created_at >= $2)
	`, itemID, now.Add(-24*time.Hour), now.Add(-7*24*time.Hour)).
		Scan(&supply, &views, &sales24h, &sales7d, &watchers, &avg24h, &min24h, &max24h)
	if err != nil {
		return err
	}

	var oldAvg int64
	err = s.db.QueryRow(ctx, `
		SELECT current_avg_price FROM market_demand WHERE item_id = $1
	`, itemID).Scan(&oldAvg)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}

	newAvg := int64(math.Round(avg24h))
	priceChange := 0.0
	if oldAvg > 0 && newAvg > 0 {
		priceChange = (float64(newAvg-oldAvg) / float64(oldAvg)) * 100
	}

	sig := DemandSignals{
		Supply:         supply,
		Sales24h:       sales24h,
		Sales7d:        sales7d,
		Views24h:       views,
		WatchlistCount: watchers,
		PriceChange24h: priceChange,
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO market_demand
		    (item_id, total_listings, sales_24h, sales_7d, views_24h, watchlist_count,
		     current_avg_price, lowest_price, highest_price, price_change_24h, trend,
		     popularity_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (item_id) DO UPDATE SET
			total_listings = EXCLUDED.total_listings,
			sales_24h = EXCLUDED.sales_24h,
			sales_7d = EXCLUDED.sales_7d,
			views_24h = EXCLUDED.views_24h,
			watchlist_count = EXCLUDED.watchlist_count,
			current_avg_price = EXCLUDED.current_avg_price,
			lowest_price = EXCLUDED.lowest_price,
			highest_price = EXCLUDED.highest_price,
			price_change_24h = EXCLUDED.price_change_24h,
			trend = EXCLUDED.trend,
			popularity_score = EXCLUDED.popularity_score,
			updated_at = now()
	`, itemID, supply, sales24h, sales7d, views, watchers,
		newAvg, int64(math.Round(min24h)), int64(math.Round(max24h)), priceChange,
		string(TrendOf(priceChange)), PopularityScore(sig))
	return err
}
