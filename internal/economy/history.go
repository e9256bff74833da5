package economy

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// HistoryPeriod selects the aggregation bucket for price snapshots.
type HistoryPeriod string

const (
	PeriodDaily   HistoryPeriod = "DAILY"
	PeriodWeekly  HistoryPeriod = "WEEKLY"
	PeriodMonthly HistoryPeriod = "MONTHLY"
)

// window returns the most recently completed bucket for p as of now. Daily
// and weekly buckets are fixed-width UTC windows aligned to the Unix epoch;
// monthly buckets follow the calendar.
func (p HistoryPeriod) window(now time.Time) (start, end time.Time, err error) {
	now = now.UTC()
	switch p {
	case PeriodDaily:
		end = now.Truncate(24 * time.Hour)
		return end.Add(-24 * time.Hour), end, nil
	case PeriodWeekly:
		end = now.Truncate(7 * 24 * time.Hour)
		return end.Add(-7 * 24 * time.Hour), end, nil
	case PeriodMonthly:
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -1, 0), end, nil
	}
	return start, end, fmt.Errorf("unknown history period %q", p)
}

// MedianInt64 returns the median of vs, averaging the middle pair for even
// counts. The input slice is not modified.
func MedianInt64(vs []int64) int64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := make([]int64, len(vs))
	copy(sorted, vs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SnapshotPriceHistory aggregates the most recently completed period of
// marketplace sales into one row per traded item. The upsert key
// (item_id, period, period_start) makes re-runs of the same window
// idempotent, so the worker can fire it on every tick.
func (s *Service) SnapshotPriceHistory(ctx context.Context, period HistoryPeriod) (int, error) {
	periodStart, periodEnd, err := period.window(time.Now())
	if err != nil {
		return 0, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT item_id, gold_amount, quantity
		FROM trading_transactions
		WHERE kind = 'MARKETPLACE' AND gold_amount > 0
		  AND created_at >= $1 AND created_at < $2
	`, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}

	type agg struct {
		unitPrices []int64
		totalSold  int64
	}
	byItem := map[int64]*agg{}
	for rows.Next() {
		var itemID, goldAmount, quantity int64
		if err := rows.Scan(&itemID, &goldAmount, &quantity); err != nil {
			rows.Close()
			return 0, err
		}
		if quantity <= 0 {
			continue
		}
		a := byItem[itemID]
		if a == nil {
			a = &agg{}
			byItem[itemID] = a
		}
		a.unitPrices = append(a.unitPrices, goldAmount/quantity)
		a.totalSold += quantity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	written := 0
	for itemID, a := range byItem {
		var sum, low, high int64
		for i, p := range a.unitPrices {
			sum += p
			if i == 0 || p < low {
				low = p
			}
			if p > high {
				high = p
			}
		}
		avg := sum / int64(len(a.unitPrices))
		median := MedianInt64(a.unitPrices)

		var totalListings int64
		if err := s.db.QueryRow(ctx, `
			SELECT COUNT(*) FROM listings
			WHERE item_id = $1 AND created_at >= $2 AND created_at < $3
		`, itemID, periodStart, periodEnd).Scan(&totalListings); err != nil {
			return written, err
		}

		_, err := s.db.Exec(ctx, `
			INSERT INTO item_price_history
			    (item_id, period, period_start, period_end,
			     average_price, lowest_price, highest_price, median_price,
			     total_sold, total_listings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (item_id, period, period_start) DO UPDATE SET
			    period_end = EXCLUDED.period_end,
			    average_price = EXCLUDED.average_price,
			    lowest_price = EXCLUDED.lowest_price,
			    highest_price = EXCLUDED.highest_price,
			    median_price = EXCLUDED.median_price,
			    total_sold = EXCLUDED.total_sold,
			    total_listings = EXCLUDED.total_listings
		`, itemID, period, periodStart, periodEnd,
			avg, low, high, median, a.totalSold, totalListings)
		if err != nil {
			return written, err
		}
		written++
	}
	if written > 0 {
		s.log.InfoContext(ctx, "price history snapshot",
			"period", period, "period_start", periodStart, "items", written)
	}
	return written, nil
}

// PriceHistory returns an item's snapshots for one period, oldest first.
func (s *Service) PriceHistory(ctx context.Context, itemID int64, period HistoryPeriod, limit int) ([]PriceHistoryRow, error) {
	if _, _, err := period.window(time.Now()); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 365 {
		limit = 30
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`,
		itemID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrItemNotFound
	}

	rows, err := s.db.Query(ctx, `
		SELECT item_id, period, period_start, period_end,
		       average_price, lowest_price, highest_price, median_price,
		       total_sold, total_listings
		FROM (
			SELECT * FROM item_price_history
			WHERE item_id = $1 AND period = $2
			ORDER BY period_start DESC
			LIMIT $3
		) recent
		ORDER BY period_start ASC
	`, itemID, period, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceHistoryRow
	for rows.Next() {
		var r PriceHistoryRow
		if err := rows.Scan(&r.ItemID, &r.Period, &r.PeriodStart, &r.PeriodEnd,
			&r.AveragePrice, &r.LowestPrice, &r.HighestPrice, &r.MedianPrice,
			&r.TotalSold, &r.TotalListings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
