package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Inventory rows are retained at zero quantity rather than deleted. That
// keeps reserve a single guarded UPDATE and avoids insert/delete churn when
// a user repeatedly lists and cancels the same item.

// reserveTx atomically decrements a holding when enough quantity exists.
// The guarded UPDATE means a concurrent reservation of the same row can
// never drive the quantity negative.
func reserveTx(ctx context.Context, tx pgx.Tx, userID string, itemID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	cmd, err := tx.Exec(ctx, `
		UPDATE inventories
		SET quantity = quantity - $1, updated_at = now()
		WHERE user_id = $2 AND item_id = $3 AND quantity >= $1
	`, qty, userID, itemID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %d", ErrInsufficientInventory, itemID)
	}
	return nil
}

// grantTx upserts a holding with an increment.
func grantTx(ctx context.Context, tx pgx.Tx, userID string, itemID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO inventories (user_id, item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE
		SET quantity = inventories.quantity + EXCLUDED.quantity, updated_at = now()
	`, userID, itemID, qty)
	return err
}

// moveTx transfers quantity between two users inside the caller's
// transaction; if either leg fails the whole transaction rolls back.
func moveTx(ctx context.Context, tx pgx.Tx, fromUserID, toUserID string, itemID, qty int64) error {
	if err := reserveTx(ctx, tx, fromUserID, itemID, qty); err != nil {
		return err
	}
	return grantTx(ctx, tx, toUserID, itemID, qty)
}

// inventoryQuantityTx reads a holding with a row lock so trade acceptance
// can re-validate legs against current state.
func inventoryQuantityTx(ctx context.Context, tx pgx.Tx, userID string, itemID int64) (int64, error) {
	var qty int64
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM inventories
		WHERE user_id = $1 AND item_id = $2
		FOR UPDATE
	`, userID, itemID).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return qty, err
}

type InventoryRow struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Rarity   Rarity `json:"rarity"`
	Quantity int64  `json:"quantity"`
}

// UserInventory lists a user's holdings; zero-quantity rows are filtered
// from the view even though they persist in storage.
func (s *Service) UserInventory(ctx context.Context, userID string) ([]InventoryRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT inv.item_id, i.name, i.rarity, inv.quantity
		FROM inventories inv
		JOIN items i ON i.id = inv.item_id
		WHERE inv.user_id = $1 AND inv.quantity > 0
		ORDER BY i.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryRow
	for rows.Next() {
		var r InventoryRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.Rarity, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
