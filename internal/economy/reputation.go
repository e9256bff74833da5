package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CanTrade is the anti-abuse gate in front of listing creation and trade
// proposals. It checks level, the daily listing cap and the trust floor;
// the checks read committed state outside the mutating transaction since
// the gate is advisory, not an inventory guarantee.
func (s *Service) CanTrade(ctx context.Context, userID string) error {
	var totalXP int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM (
			SELECT amount FROM xp_audits
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
	`, userID, XPAuditWindow).Scan(&totalXP)
	if err != nil {
		return err
	}
	if level := LevelFromXP(totalXP); level < MinTradeLevel {
		return fmt.Errorf("%w: level %d, need %d", ErrTradingLocked, level, MinTradeLevel)
	}

	var listingsToday int64
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE seller_id = $1 AND created_at >= date_trunc('day', now())
	`, userID).Scan(&listingsToday)
	if err != nil {
		return err
	}
	if listingsToday >= DailyListingCap {
		return fmt.Errorf("%w: %d listings today", ErrRateLimited, listingsToday)
	}

	var trust int
	err = s.db.QueryRow(ctx, `
		SELECT trust_score FROM trading_reputations WHERE user_id = $1
	`, userID).Scan(&trust)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	if err == nil && trust < TrustFloor {
		return fmt.Errorf("%w: trust %d, floor is %d", ErrLowTrust, trust, TrustFloor)
	}
	return nil
}

// IsSuspicious reports whether a user's trailing 24h activity crosses the
// velocity thresholds. Only EARNED ledger rows count toward the gold
// threshold; spending sprees are the buyer's problem, not fraud signal.
func (s *Service) IsSuspicious(ctx context.Context, userID string) (bool, string, error) {
	var txCount int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM trading_transactions
		WHERE (seller_id = $1 OR buyer_id = $1)
		  AND created_at >= now() - interval '24 hours'
	`, userID).Scan(&txCount)
	if err != nil {
		return false, "", err
	}
	if txCount > SuspiciousTxCount24h {
		return true, fmt.Sprintf("%d transactions in 24h", txCount), nil
	}

	var goldEarned int64
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM money_ledger
		WHERE user_id = $1 AND kind = 'EARNED' AND currency = 'gold'
		  AND created_at >= now() - interval '24 hours'
	`, userID).Scan(&goldEarned)
	if err != nil {
		return false, "", err
	}
	if goldEarned > SuspiciousGoldEarned24h {
		return true, fmt.Sprintf("%d gold earned in 24h", goldEarned), nil
	}
	return false, "", nil
}

// recordSaleTx bumps the seller side of a reputation row, creating it with
// the default trust score on first trade.
func recordSaleTx(ctx context.Context, tx pgx.Tx, userID string, goldEarned int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trading_reputations
		    (user_id, trust_score, total_sales, total_gold_earned, last_trade_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
		    total_sales = trading_reputations.total_sales + 1,
		    total_gold_earned = trading_reputations.total_gold_earned + EXCLUDED.total_gold_earned,
		    last_trade_at = now(),
		    updated_at = now()
	`, userID, DefaultTrustScore, goldEarned)
	return err
}

// recordPurchaseTx bumps the buyer side of a reputation row.
func recordPurchaseTx(ctx context.Context, tx pgx.Tx, userID string, goldSpent int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trading_reputations
		    (user_id, trust_score, total_purchases, total_gold_spent, last_trade_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
		    total_purchases = trading_reputations.total_purchases + 1,
		    total_gold_spent = trading_reputations.total_gold_spent + EXCLUDED.total_gold_spent,
		    last_trade_at = now(),
		    updated_at = now()
	`, userID, DefaultTrustScore, goldSpent)
	return err
}

// AdjustTrust applies a clamped delta to a user's trust score.
func (s *Service) AdjustTrust(ctx context.Context, userID string, delta int, reason string) (int, error) {
	var out int
	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		var trust int
		err := tx.QueryRow(ctx, `
			SELECT trust_score FROM trading_reputations WHERE user_id = $1 FOR UPDATE
		`, userID).Scan(&trust)
		if err == pgx.ErrNoRows {
			trust = DefaultTrustScore
			if _, err := tx.Exec(ctx, `
				INSERT INTO trading_reputations (user_id, trust_score) VALUES ($1, $2)
			`, userID, trust); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		out = clampTrust(trust + delta)
		_, err = tx.Exec(ctx, `
			UPDATE trading_reputations
			SET trust_score = $1, updated_at = now()
			WHERE user_id = $2
		`, out, userID)
		if err != nil {
			return err
		}
		s.log.InfoContext(ctx, "trust adjusted",
			"user_id", userID, "delta", delta, "trust", out, "reason", reason)
		return nil
	})
	return out, err
}

// FlagSuspiciousUsers scans users active in the last day, applies the trust
// penalty once per day to anyone crossing a velocity threshold, and records
// the flag. Gating stays with CanTrade; the flag just drags trust toward
// the floor.
func (s *Service) FlagSuspiciousUsers(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT user_id FROM money_ledger
		WHERE created_at >= now() - interval '24 hours'
	`)
	if err != nil {
		return 0, err
	}
	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	flagged := 0
	for _, userID := range userIDs {
		suspicious, why, err := s.IsSuspicious(ctx, userID)
		if err != nil {
			return flagged, err
		}
		if !suspicious {
			continue
		}
		// Count and log only after the transaction commits; the closure can
		// rerun on a serialization retry.
		var penalized bool
		err = s.inSerializableTx(ctx, func(tx pgx.Tx) error {
			penalized = false
			cmd, err := tx.Exec(ctx, `
				UPDATE trading_reputations
				SET trust_score = GREATEST(trust_score - $1, 0),
				    flagged_at = now(),
				    updated_at = now()
				WHERE user_id = $2
				  AND (flagged_at IS NULL OR flagged_at < now() - interval '24 hours')
			`, SuspiciousTrustPenalty, userID)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 0 {
				// Already flagged in this window, or no reputation row yet.
				return nil
			}
			penalized = true
			return queueNotification(ctx, tx, userID, "SECURITY",
				"Account activity review",
				"Unusual trading activity was detected on your account",
				map[string]any{"reason": why})
		})
		if err != nil {
			return flagged, err
		}
		if penalized {
			flagged++
			s.log.WarnContext(ctx, "suspicious activity flagged",
				"user_id", userID, "reason", why)
		}
	}
	return flagged, nil
}

// Reputation returns the user's trading reputation, synthesizing a default
// row for users who have never traded.
func (s *Service) Reputation(ctx context.Context, userID string) (ReputationView, error) {
	v := ReputationView{UserID: userID, TrustScore: DefaultTrustScore}
	err := s.db.QueryRow(ctx, `
		SELECT trust_score, total_sales, total_purchases,
		       total_gold_earned, total_gold_spent, last_trade_at
		FROM trading_reputations
		WHERE user_id = $1
	`, userID).Scan(&v.TrustScore, &v.TotalSales, &v.TotalPurchases,
		&v.TotalGoldEarned, &v.TotalGoldSpent, &v.LastTradeAt)
	if err == pgx.ErrNoRows {
		return v, nil
	}
	return v, err
}

// TopTraders ranks by volume, trust breaking ties.
func (s *Service) TopTraders(ctx context.Context, limit int) ([]ReputationView, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT user_id, trust_score, total_sales, total_purchases,
		       total_gold_earned, total_gold_spent, last_trade_at
		FROM trading_reputations
		ORDER BY total_sales + total_purchases DESC, trust_score DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReputationView
	for rows.Next() {
		var v ReputationView
		if err := rows.Scan(&v.UserID, &v.TrustScore, &v.TotalSales, &v.TotalPurchases,
			&v.TotalGoldEarned, &v.TotalGoldSpent, &v.LastTradeAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
