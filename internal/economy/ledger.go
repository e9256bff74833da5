package economy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// debitTx decrements a wallet balance and appends the matching ledger entry.
// The balance row is locked and re-read so a concurrent spender cannot push
// it negative.
func debitTx(ctx context.Context, tx pgx.Tx, txGroupID, userID string, amount int64, currency Currency, kind LedgerKind, reason string) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	column := balanceColumn(currency)
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT `+column+` FROM users WHERE id = $1 FOR UPDATE`,
		userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrUserNotFound
		}
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: need %d %s, have %d", ErrInsufficientFunds, amount, currency, balance)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET `+column+` = `+column+` - $1, updated_at = now() WHERE id = $2`,
		amount, userID); err != nil {
		return err
	}
	return appendLedger(ctx, tx, txGroupID, userID, -amount, currency, kind, reason)
}

// creditTx increments a wallet balance and appends the matching ledger entry.
func creditTx(ctx context.Context, tx pgx.Tx, txGroupID, userID string, amount int64, currency Currency, kind LedgerKind, reason string) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	column := balanceColumn(currency)
	cmd, err := tx.Exec(ctx,
		`UPDATE users SET `+column+` = `+column+` + $1, updated_at = now() WHERE id = $2`,
		amount, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return appendLedger(ctx, tx, txGroupID, userID, amount, currency, kind, reason)
}

func balanceColumn(currency Currency) string {
	if currency == CurrencyGems {
		return "gems"
	}
	return "gold"
}

// appendLedger writes one append-only audit row. Ledger rows are never
// updated or deleted, and never summed to reconstruct a balance on a hot
// path.
func appendLedger(ctx context.Context, tx pgx.Tx, txGroupID, userID string, amount int64, currency Currency, kind LedgerKind, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO money_ledger (tx_group_id, user_id, amount, currency, kind, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txGroupID, userID, amount, currency, kind, reason)
	return err
}

// Transfer moves currency between two wallets. The fee is debited from the
// sender along with the amount but credited nowhere; that sink is the
// documented behavior and is preserved exactly.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	var out TransferResult
	if in.Amount <= 0 {
		return out, ErrInvalidQuantity
	}
	if in.FromUserID == in.ToUserID {
		return out, ErrSelfTrade
	}
	received, fee := SplitFee(in.Amount, s.transferFeeRate)
	out = TransferResult{Amount: in.Amount, Fee: fee, Received: received, Currency: in.Currency}

	reason := in.Reason
	if reason == "" {
		reason = fmt.Sprintf("Transfer to %s", in.ToUserID)
	}
	if fee > 0 {
		// The fee stays visible in the audit trail even though no wallet
		// ever receives it.
		reason = fmt.Sprintf("%s (fee %d)", reason, fee)
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.FromUserID, in.IdempotencyKey, "wallet_transfer"); err != nil {
			return err
		}
		txGroupID := uuid.NewString()
		if err := debitTx(ctx, tx, txGroupID, in.FromUserID, in.Amount, in.Currency, LedgerSpent, reason); err != nil {
			return err
		}
		if err := creditTx(ctx, tx, txGroupID, in.ToUserID, received, in.Currency, LedgerEarned,
			fmt.Sprintf("Transfer from %s", in.FromUserID)); err != nil {
			return err
		}
		if err := queueNotification(ctx, tx, in.ToUserID, "WALLET",
			"You received a transfer",
			fmt.Sprintf("%s sent you %d %s", in.FromUserID, received, in.Currency),
			map[string]any{"sender_id": in.FromUserID, "amount": received, "currency": in.Currency}); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`SELECT `+balanceColumn(in.Currency)+` FROM users WHERE id = $1`,
			in.FromUserID).Scan(&out.SenderBalance)
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.notify.Notify(ctx, in.ToUserID, "Transfer received", fmt.Sprintf("+%d %s", received, in.Currency))
	return out, nil
}

// GrantReward is the single entry point for external reward flows (quests,
// jobs, achievements). Everything routes through the ledger and inventory
// components; nothing mutates balances directly.
func (s *Service) GrantReward(ctx context.Context, in RewardGrant) error {
	if in.Gold < 0 || in.Gems < 0 || in.XP < 0 || in.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if in.Gold == 0 && in.Gems == 0 && in.XP == 0 && in.ItemID == 0 {
		return fmt.Errorf("%w: empty reward", ErrInvalidQuantity)
	}
	reason := in.Reason
	if reason == "" {
		reason = "Reward"
	}
	return s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "grant_reward"); err != nil {
			return err
		}
		txGroupID := uuid.NewString()
		if in.Gold > 0 {
			if err := creditTx(ctx, tx, txGroupID, in.UserID, in.Gold, CurrencyGold, LedgerEarned, reason); err != nil {
				return err
			}
		}
		if in.Gems > 0 {
			if err := creditTx(ctx, tx, txGroupID, in.UserID, in.Gems, CurrencyGems, LedgerEarned, reason); err != nil {
				return err
			}
		}
		if in.XP > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO xp_audits (user_id, amount, reason)
				VALUES ($1, $2, $3)
			`, in.UserID, in.XP, reason); err != nil {
				return err
			}
		}
		if in.ItemID > 0 {
			qty := in.Quantity
			if qty == 0 {
				qty = 1
			}
			if err := grantTx(ctx, tx, in.UserID, in.ItemID, qty); err != nil {
				return err
			}
		}
		return nil
	})
}

// LedgerHistory returns recent audit entries for a user, newest first.
func (s *Service) LedgerHistory(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, tx_group_id, user_id, amount, currency, kind, reason, created_at
		FROM money_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.TxGroupID, &e.UserID, &e.Amount, &e.Currency, &e.Kind, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
