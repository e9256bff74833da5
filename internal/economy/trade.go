package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProposeTrade records a pending two-sided trade. The requester's offered
// legs are validated against their current inventory up front; nothing is
// escrowed, acceptance re-validates everything.
func (s *Service) ProposeTrade(ctx context.Context, in ProposeTradeInput) (TradeView, error) {
	var out TradeView
	if in.RequesterID == in.RecipientID {
		return out, ErrSelfTrade
	}
	if len(in.OfferedItems) == 0 && len(in.RequestedItems) == 0 {
		return out, ErrEmptyTrade
	}
	for _, line := range append(append([]TradeLine{}, in.OfferedItems...), in.RequestedItems...) {
		if line.Quantity <= 0 {
			return out, ErrInvalidQuantity
		}
	}

	if err := s.CanTrade(ctx, in.RequesterID); err != nil {
		return out, err
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.RequesterID, in.IdempotencyKey, "propose_trade"); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
			in.RecipientID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		for _, line := range in.OfferedItems {
			if err := checkTradeableTx(ctx, tx, line.ItemID); err != nil {
				return err
			}
			have, err := inventoryQuantityTx(ctx, tx, in.RequesterID, line.ItemID)
			if err != nil {
				return err
			}
			if have < line.Quantity {
				return fmt.Errorf("%w: item %d", ErrInsufficientInventory, line.ItemID)
			}
		}
		for _, line := range in.RequestedItems {
			if err := checkTradeableTx(ctx, tx, line.ItemID); err != nil {
				return err
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO trades (requester_id, recipient_id, message, status)
			VALUES ($1, $2, $3, 'PENDING')
			RETURNING id, created_at
		`, in.RequesterID, in.RecipientID, in.Message).Scan(&out.ID, &out.CreatedAt); err != nil {
			return err
		}
		if err := insertTradeItemsTx(ctx, tx, out.ID, in.OfferedItems, true); err != nil {
			return err
		}
		if err := insertTradeItemsTx(ctx, tx, out.ID, in.RequestedItems, false); err != nil {
			return err
		}
		return queueNotification(ctx, tx, in.RecipientID, "TRADE",
			"New trade offer",
			fmt.Sprintf("%s sent you a trade offer", in.RequesterID),
			map[string]any{"trade_id": out.ID, "requester_id": in.RequesterID})
	})
	if err != nil {
		return TradeView{}, err
	}

	out.RequesterID = in.RequesterID
	out.RecipientID = in.RecipientID
	out.Message = in.Message
	out.Status = TradePending
	s.notify.Notify(ctx, in.RecipientID, "New trade offer",
		fmt.Sprintf("%s wants to trade with you", in.RequesterID))
	return out, nil
}

func checkTradeableTx(ctx context.Context, tx pgx.Tx, itemID int64) error {
	var name string
	var tradeable bool
	err := tx.QueryRow(ctx, `SELECT name, tradeable FROM items WHERE id = $1`, itemID).
		Scan(&name, &tradeable)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
		}
		return err
	}
	if !tradeable {
		return fmt.Errorf("%w: %s", ErrNotTradeable, name)
	}
	return nil
}

func insertTradeItemsTx(ctx context.Context, tx pgx.Tx, tradeID int64, lines []TradeLine, offered bool) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO trade_items (trade_id, item_id, quantity, is_offered)
			VALUES ($1, $2, $3, $4)
		`, tradeID, line.ItemID, line.Quantity, offered); err != nil {
			return err
		}
	}
	return nil
}

// AcceptTrade atomically swaps both sides of a pending trade. Every leg is
// re-validated with a row lock inside the transaction; a side that sold its
// goods in the meantime makes the whole acceptance fail with the stale leg
// identified.
func (s *Service) AcceptTrade(ctx context.Context, tradeID int64, recipientID, idempotencyKey string) (TradeView, error) {
	var out TradeView
	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, recipientID, idempotencyKey, "accept_trade"); err != nil {
			return err
		}

		var requesterID, toUserID, message string
		var status TradeStatus
		err := tx.QueryRow(ctx, `
			SELECT requester_id, recipient_id, message, status
			FROM trades
			WHERE id = $1
			FOR UPDATE
		`, tradeID).Scan(&requesterID, &toUserID, &message, &status)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrTradeNotFound
			}
			return err
		}
		if toUserID != recipientID {
			return ErrUnauthorized
		}
		if status != TradePending {
			return ErrTradeNotPending
		}

		items, err := tradeItemsTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}

		// Offered legs move requester -> recipient, requested legs move the
		// other way. Validate all legs before moving any.
		for _, it := range items {
			owner := requesterID
			side := "offered"
			if !it.IsOffered {
				owner = recipientID
				side = "requested"
			}
			have, err := inventoryQuantityTx(ctx, tx, owner, it.ItemID)
			if err != nil {
				return err
			}
			if have < it.Quantity {
				return fmt.Errorf("%w: %s %s (have %d, need %d)",
					ErrTradeLegStale, side, it.ItemName, have, it.Quantity)
			}
		}
		for _, it := range items {
			from, to := requesterID, recipientID
			if !it.IsOffered {
				from, to = recipientID, requesterID
			}
			if err := moveTx(ctx, tx, from, to, it.ItemID, it.Quantity); err != nil {
				return err
			}
		}

		if err := tx.QueryRow(ctx, `
			UPDATE trades
			SET status = 'COMPLETED', completed_at = now(), updated_at = now()
			WHERE id = $1
			RETURNING completed_at
		`, tradeID).Scan(&out.CompletedAt); err != nil {
			return err
		}

		for _, it := range items {
			seller, buyer := requesterID, recipientID
			if !it.IsOffered {
				seller, buyer = recipientID, requesterID
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO trading_transactions
				    (trade_id, seller_id, buyer_id, item_id, quantity, gold_amount, gem_amount, kind)
				VALUES ($1, $2, $3, $4, $5, 0, 0, 'TRADE')
			`, tradeID, seller, buyer, it.ItemID, it.Quantity); err != nil {
				return err
			}
		}
		if err := recordSaleTx(ctx, tx, requesterID, 0); err != nil {
			return err
		}
		if err := recordSaleTx(ctx, tx, recipientID, 0); err != nil {
			return err
		}

		out.ID = tradeID
		out.RequesterID = requesterID
		out.RecipientID = recipientID
		out.Message = message
		out.Status = TradeCompleted
		out.Items = items
		return queueNotification(ctx, tx, requesterID, "TRADE",
			"Trade accepted",
			fmt.Sprintf("%s accepted your trade offer", recipientID),
			map[string]any{"trade_id": tradeID})
	})
	if err != nil {
		return TradeView{}, err
	}
	s.notify.Notify(ctx, out.RequesterID, "Trade accepted",
		fmt.Sprintf("Trade #%d completed", tradeID))
	return out, nil
}

// RejectTrade lets the recipient decline a pending offer.
func (s *Service) RejectTrade(ctx context.Context, tradeID int64, recipientID string) error {
	return s.closeTrade(ctx, tradeID, recipientID, false)
}

// CancelTrade lets the requester withdraw a pending offer.
func (s *Service) CancelTrade(ctx context.Context, tradeID int64, requesterID string) error {
	return s.closeTrade(ctx, tradeID, requesterID, true)
}

func (s *Service) closeTrade(ctx context.Context, tradeID int64, userID string, byRequester bool) error {
	return s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		var requesterID, recipientID string
		var status TradeStatus
		err := tx.QueryRow(ctx, `
			SELECT requester_id, recipient_id, status
			FROM trades
			WHERE id = $1
			FOR UPDATE
		`, tradeID).Scan(&requesterID, &recipientID, &status)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrTradeNotFound
			}
			return err
		}
		if byRequester && requesterID != userID {
			return ErrUnauthorized
		}
		if !byRequester && recipientID != userID {
			return ErrUnauthorized
		}
		if status != TradePending {
			return ErrTradeNotPending
		}
		if _, err := tx.Exec(ctx, `
			UPDATE trades SET status = 'CANCELLED', updated_at = now() WHERE id = $1
		`, tradeID); err != nil {
			return err
		}

		other := recipientID
		title := "Trade cancelled"
		body := fmt.Sprintf("%s withdrew their trade offer", requesterID)
		if !byRequester {
			other = requesterID
			title = "Trade declined"
			body = fmt.Sprintf("%s declined your trade offer", recipientID)
		}
		return queueNotification(ctx, tx, other, "TRADE", title, body,
			map[string]any{"trade_id": tradeID})
	})
}

func tradeItemsTx(ctx context.Context, tx pgx.Tx, tradeID int64) ([]TradeItemView, error) {
	rows, err := tx.Query(ctx, `
		SELECT ti.item_id, i.name, ti.quantity, ti.is_offered
		FROM trade_items ti
		JOIN items i ON i.id = ti.item_id
		WHERE ti.trade_id = $1
		ORDER BY ti.id
	`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TradeItemView
	for rows.Next() {
		var it TradeItemView
		if err := rows.Scan(&it.ItemID, &it.ItemName, &it.Quantity, &it.IsOffered); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListTrades returns trades where the user is on either side, newest first.
func (s *Service) ListTrades(ctx context.Context, userID string, status TradeStatus) ([]TradeView, error) {
	query := `
		SELECT id, requester_id, recipient_id, message, status, created_at, completed_at
		FROM trades
		WHERE (requester_id = $1 OR recipient_id = $1)
	`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeView
	for rows.Next() {
		var t TradeView
		if err := rows.Scan(&t.ID, &t.RequesterID, &t.RecipientID, &t.Message,
			&t.Status, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := s.tradeItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// TradeDetail returns one trade with its legs.
func (s *Service) TradeDetail(ctx context.Context, tradeID int64, userID string) (TradeView, error) {
	var t TradeView
	err := s.db.QueryRow(ctx, `
		SELECT id, requester_id, recipient_id, message, status, created_at, completed_at
		FROM trades
		WHERE id = $1
	`, tradeID).Scan(&t.ID, &t.RequesterID, &t.RecipientID, &t.Message,
		&t.Status, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return t, ErrTradeNotFound
		}
		return t, err
	}
	if t.RequesterID != userID && t.RecipientID != userID {
		return TradeView{}, ErrUnauthorized
	}
	t.Items, err = s.tradeItems(ctx, tradeID)
	return t, err
}

func (s *Service) tradeItems(ctx context.Context, tradeID int64) ([]TradeItemView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ti.item_id, i.name, ti.quantity, ti.is_offered
		FROM trade_items ti
		JOIN items i ON i.id = ti.item_id
		WHERE ti.trade_id = $1
		ORDER BY ti.id
	`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TradeItemView
	for rows.Next() {
		var it TradeItemView
		if err := rows.Scan(&it.ItemID, &it.ItemName, &it.Quantity, &it.IsOffered); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
