package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

type rowQuerier interface {
	querier
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) ReadBoosts(ctx context.Context, accountID string) ([]domain.BoostEntry, error) {
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return readBoosts(ctx, s.db, accountID)
}

// UpsertBoost writes the boost for entry.Kind, replacing any previous one.
func (s *Store) UpsertBoost(ctx context.Context, accountID string, entry domain.BoostEntry) error {
	var expiresMs *int64
	if entry.ExpiresAt != nil {
		ms := domain.ToMillis(*entry.ExpiresAt)
		expiresMs = &ms
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO account_boosts (account_id, kind, multiplier, expires_at_ms, permanent, source, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, NOW())
		ON CONFLICT (account_id, kind) DO UPDATE SET
			multiplier = EXCLUDED.multiplier,
			expires_at_ms = EXCLUDED.expires_at_ms,
			permanent = EXCLUDED.permanent,
			source = EXCLUDED.source,
			updated_at = NOW()
	`, accountID, string(entry.Kind), entry.Multiplier.String(), expiresMs, entry.Permanent, entry.Source)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == PgErrorCodeForeignKeyViolation {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
		}
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertBoost, err)
	}
	return nil
}

// DeleteBoost removes the boost of kind. Deleting an absent kind is not an error.
func (s *Store) DeleteBoost(ctx context.Context, accountID string, kind domain.BoostKind) error {
	if err := s.requireAccount(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx,
		`DELETE FROM account_boosts WHERE account_id = $1 AND kind = $2`,
		accountID, string(kind),
	); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToDeleteBoost, err)
	}
	return nil
}

func (s *Store) requireAccount(ctx context.Context, accountID string) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1)`, accountID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToReadAccount, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return nil
}

func readBoosts(ctx context.Context, q rowQuerier, accountID string) ([]domain.BoostEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT kind, multiplier::text, expires_at_ms, permanent, source
		FROM account_boosts
		WHERE account_id = $1
		ORDER BY kind
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadBoosts, err)
	}
	defer rows.Close()

	boosts := make([]domain.BoostEntry, 0)
	for rows.Next() {
		var (
			kind       string
			multiplier string
			expiresMs  *int64
			entry      domain.BoostEntry
		)
		if err := rows.Scan(&kind, &multiplier, &expiresMs, &entry.Permanent, &entry.Source); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadBoosts, err)
		}
		entry.Kind = domain.BoostKind(kind)
		if entry.Multiplier, err = parseDecimal(multiplier); err != nil {
			return nil, err
		}
		if expiresMs != nil {
			expires := domain.FromMillis(*expiresMs)
			entry.ExpiresAt = &expires
		}
		boosts = append(boosts, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadBoosts, err)
	}
	return boosts, nil
}
