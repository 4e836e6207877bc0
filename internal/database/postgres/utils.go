package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// querier is the part of pgxpool.Pool and pgx.Tx the queries need.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionColumns = `
	COALESCE(s.active, FALSE),
	COALESCE(s.start_time_ms, 0),
	COALESCE(s.device_id, ''),
	COALESCE(s.last_server_update_ms, 0),
	COALESCE(s.completed_at_ms, 0)`

// sessionRow holds the epoch-millis columns of mining_sessions.
type sessionRow struct {
	active        bool
	startMs       int64
	device        string
	lastUpdateMs  int64
	completedAtMs int64
}

func (r *sessionRow) dest() []any {
	return []any{&r.active, &r.startMs, &r.device, &r.lastUpdateMs, &r.completedAtMs}
}

func (r sessionRow) session() domain.Session {
	return domain.Session{
		Active:           r.active,
		StartTime:        domain.FromMillis(r.startMs),
		OwningDevice:     domain.DeviceID(r.device),
		LastServerUpdate: domain.FromMillis(r.lastUpdateMs),
		CompletedAt:      domain.FromMillis(r.completedAtMs),
	}
}

// lockAccount takes a row lock on the account and returns its balance and session.
// Concurrent writers for the same account queue here.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID string) (decimal.Decimal, domain.Session, error) {
	var balance string
	var row sessionRow
	query := `
		SELECT a.balance::text,` + sessionColumns + `
		FROM accounts a
		LEFT JOIN mining_sessions s ON s.account_id = a.account_id
		WHERE a.account_id = $1
		FOR UPDATE OF a
	`
	err := tx.QueryRow(ctx, query, accountID).Scan(append([]any{&balance}, row.dest()...)...)
	if err != nil {
		return decimal.Zero, domain.Session{}, notFound(err, accountID, ErrMsgFailedToLockAccount)
	}
	total, err := parseDecimal(balance)
	if err != nil {
		return decimal.Zero, domain.Session{}, err
	}
	return total, row.session(), nil
}

// ledgerHas reports whether idempotencyKey was already applied to the account.
func ledgerHas(ctx context.Context, q querier, accountID, idempotencyKey string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM balance_ledger WHERE account_id = $1 AND idempotency_key = $2)`,
		accountID, idempotencyKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ErrMsgFailedToCheckLedger, err)
	}
	return exists, nil
}

// addToBalance records amount in the ledger and increments the balance in place.
func addToBalance(ctx context.Context, tx pgx.Tx, accountID string, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO balance_ledger (account_id, idempotency_key, amount, source)
		VALUES ($1, $2, $3::numeric, $4)
	`, accountID, idempotencyKey, amount.String(), source)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", ErrMsgFailedToWriteLedger, err)
	}

	var total string
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2::numeric, updated_at = NOW()
		WHERE account_id = $1
		RETURNING balance::text
	`, accountID, amount.String()).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", ErrMsgFailedToUpdateBalance, err)
	}
	return parseDecimal(total)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", ErrMsgInvalidStoredDecimal, s, err)
	}
	return d, nil
}

func notFound(err error, accountID, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db txBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer repository.SafeRollback(ctx, tx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return nil
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
