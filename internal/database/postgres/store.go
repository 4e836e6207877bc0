// Package postgres implements the remote account store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// Store implements repository.RemoteStore. Every mutation runs in a transaction
// holding the account row lock, so claims and credits are atomic per account.
type Store struct {
	db    *pgxpool.Pool
	clock domain.Clock
}

var _ repository.RemoteStore = (*Store)(nil)

// NewStore creates a Store. Server timestamps are taken from clock.
func NewStore(db *pgxpool.Pool, clock domain.Clock) *Store {
	return &Store{db: db, clock: clock}
}

// CreateAccount inserts an account with a zero balance and an inactive session.
// An existing account is left untouched.
func (s *Store) CreateAccount(ctx context.Context, accountID string) error {
	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO accounts (account_id) VALUES ($1)
			ON CONFLICT (account_id) DO NOTHING
		`, accountID); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToCreateAccount, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO mining_sessions (account_id) VALUES ($1)
			ON CONFLICT (account_id) DO NOTHING
		`, accountID); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToCreateAccount, err)
		}
		return nil
	})
}

func (s *Store) now() time.Time {
	return domain.TruncateMillis(s.clock.Now())
}

func (s *Store) ReadSession(ctx context.Context, accountID string) (domain.Session, error) {
	var row sessionRow
	query := `
		SELECT` + sessionColumns + `
		FROM accounts a
		LEFT JOIN mining_sessions s ON s.account_id = a.account_id
		WHERE a.account_id = $1
	`
	if err := s.db.QueryRow(ctx, query, accountID).Scan(row.dest()...); err != nil {
		return domain.Session{}, notFound(err, accountID, ErrMsgFailedToReadSession)
	}
	return row.session(), nil
}

// ReadAccount reads session, balance and boosts from one snapshot.
func (s *Store) ReadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer repository.SafeRollback(ctx, tx)

	var balance string
	var row sessionRow
	query := `
		SELECT a.balance::text,` + sessionColumns + `
		FROM accounts a
		LEFT JOIN mining_sessions s ON s.account_id = a.account_id
		WHERE a.account_id = $1
	`
	if err := tx.QueryRow(ctx, query, accountID).Scan(append([]any{&balance}, row.dest()...)...); err != nil {
		return nil, notFound(err, accountID, ErrMsgFailedToReadAccount)
	}
	total, err := parseDecimal(balance)
	if err != nil {
		return nil, err
	}

	boosts, err := readBoosts(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	return &domain.Account{
		ID:      accountID,
		Session: row.session(),
		Balance: total,
		Boosts:  boosts,
	}, nil
}

func (s *Store) ClaimSession(ctx context.Context, accountID string, claim domain.Session, duration time.Duration) (repository.ClaimResult, error) {
	var result repository.ClaimResult
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		_, current, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		now := s.now()
		if current.Active {
			switch {
			case current.SameClaim(claim):
				result = repository.ClaimResult{Claimed: true, Session: current}
				return nil
			case !current.Expired(now, duration), !current.Credited():
				result = repository.ClaimResult{Claimed: false, Session: current}
				return nil
			}
		}

		next := domain.Session{
			Active:           true,
			StartTime:        domain.TruncateMillis(claim.StartTime),
			OwningDevice:     claim.OwningDevice,
			LastServerUpdate: now,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO mining_sessions (account_id, active, start_time_ms, device_id, last_server_update_ms, completed_at_ms)
			VALUES ($1, TRUE, $2, $3, $4, 0)
			ON CONFLICT (account_id) DO UPDATE SET
				active = TRUE,
				start_time_ms = EXCLUDED.start_time_ms,
				device_id = EXCLUDED.device_id,
				last_server_update_ms = EXCLUDED.last_server_update_ms,
				completed_at_ms = 0
		`, accountID, domain.ToMillis(next.StartTime), string(next.OwningDevice), domain.ToMillis(now))
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToWriteSession, err)
		}
		result = repository.ClaimResult{Claimed: true, Session: next}
		return nil
	})
	return result, err
}

func (s *Store) CreditSession(ctx context.Context, accountID string, start time.Time, amount decimal.Decimal) (repository.CreditResult, error) {
	var result repository.CreditResult
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		balance, current, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		key := repository.SessionIdempotencyKey(start)
		done, err := ledgerHas(ctx, tx, accountID, key)
		if err != nil {
			return err
		}
		if done {
			result = repository.CreditResult{Credited: false, Balance: balance, Session: current}
			return nil
		}
		if domain.ToMillis(current.StartTime) != domain.ToMillis(start) {
			return fmt.Errorf("%w: remote session started at %d", domain.ErrClaimRejected, domain.ToMillis(current.StartTime))
		}

		total, err := addToBalance(ctx, tx, accountID, amount, domain.SourceMiningSession, key)
		if err != nil {
			return err
		}

		now := s.now()
		if _, err := tx.Exec(ctx, `
			UPDATE mining_sessions
			SET completed_at_ms = $2, last_server_update_ms = $2
			WHERE account_id = $1
		`, accountID, domain.ToMillis(now)); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToWriteSession, err)
		}

		current.CompletedAt = now
		current.LastServerUpdate = now
		result = repository.CreditResult{Credited: true, Balance: total, Session: current}
		return nil
	})
	return result, err
}

func (s *Store) ResetSession(ctx context.Context, accountID string, start time.Time) (domain.Session, error) {
	var result domain.Session
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		_, current, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if !current.Active || domain.ToMillis(current.StartTime) != domain.ToMillis(start) {
			result = current
			return nil
		}

		now := s.now()
		if _, err := tx.Exec(ctx, `
			UPDATE mining_sessions
			SET active = FALSE, start_time_ms = 0, device_id = '', completed_at_ms = 0, last_server_update_ms = $2
			WHERE account_id = $1
		`, accountID, domain.ToMillis(now)); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToWriteSession, err)
		}
		result = domain.Session{LastServerUpdate: now}
		return nil
	})
	return result, err
}

func (s *Store) IncrementBalance(ctx context.Context, accountID string, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: increment must be positive", domain.ErrInvalidInput)
	}

	var total decimal.Decimal
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		balance, _, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		done, err := ledgerHas(ctx, tx, accountID, idempotencyKey)
		if err != nil {
			return err
		}
		if done {
			total = balance
			return nil
		}
		total, err = addToBalance(ctx, tx, accountID, amount, source, idempotencyKey)
		return err
	})
	return total, err
}
