package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service owns every mutation of wallets, inventories, listings and trades.
// Each mutating operation runs as a single serializable transaction; partial
// application is never observable.
type Service struct {
	db              *pgxpool.Pool
	log             *slog.Logger
	notify          Notifier
	transferFeeRate float64
	starterGold     int64
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func WithTransferFeeRate(rate float64) Option {
	return func(s *Service) { s.transferFeeRate = rate }
}

// WithStarterGold sets the one-time grant credited when a user row is first
// created. Zero disables the grant.
func WithStarterGold(amount int64) Option {
	return func(s *Service) { s.starterGold = amount }
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:              db,
		log:             logger,
		transferFeeRate: DefaultTransferFeeRate,
	}
	s.notify = &LogNotifier{Log: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	maxTxAttempts = 8
	initialRetry  = 75 * time.Millisecond
	maxRetryDelay = 1200 * time.Millisecond
)

// inSerializableTx runs fn inside a serializable transaction, retrying a
// bounded number of times when Postgres reports a serialization failure.
// Conflicts that survive the retries surface as ErrTxConflict so callers can
// retry the whole operation; everything else aborts immediately.
func (s *Service) inSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	retryDelay := initialRetry
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxTxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < maxRetryDelay {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// claimIdempotency inserts the (user, key) pair and fails when the key was
// already used. It runs first inside every mutating transaction so a retried
// request can never double-apply.
func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

// EnsureUser creates the wallet row for an authenticated identity on first
// contact and credits the starter gold exactly once. Existing rows only
// refresh the email.
func (s *Service) EnsureUser(ctx context.Context, userID, email string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserNotFound
	}
	return s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		// xmax = 0 distinguishes a fresh insert from a conflict update.
		var inserted bool
		err := tx.QueryRow(ctx, `
			INSERT INTO users (id, email)
			VALUES ($1, NULLIF($2, ''))
			ON CONFLICT (id) DO UPDATE
			SET email = COALESCE(EXCLUDED.email, users.email), updated_at = now()
			RETURNING (xmax = 0)
		`, userID, strings.TrimSpace(email)).Scan(&inserted)
		if err != nil {
			return err
		}
		if !inserted || s.starterGold <= 0 {
			return nil
		}
		return creditTx(ctx, tx, uuid.NewString(), userID, s.starterGold,
			CurrencyGold, LedgerEarned, "Welcome grant")
	})
}

// Wallet returns the denormalized balances, which are the single source of
// truth for real-time checks. The ledger is audit-only.
func (s *Service) Wallet(ctx context.Context, userID string) (Wallet, error) {
	w := Wallet{UserID: userID}
	err := s.db.QueryRow(ctx, `
		SELECT gold, gems FROM users WHERE id = $1
	`, userID).Scan(&w.Gold, &w.Gems)
	if err == pgx.ErrNoRows {
		return w, ErrUserNotFound
	}
	return w, err
}

// queueNotification appends a notification row inside the caller's
// transaction. Delivery happens elsewhere; the engine only records intent.
func queueNotification(ctx context.Context, tx pgx.Tx, userID, kind, title, body string, payload map[string]any) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications (user_id, kind, title, body, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, kind, title, body, payload)
	return err
}
