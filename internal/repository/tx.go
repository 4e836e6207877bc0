package repository

import "context"

// Tx is the subset of a database transaction the repositories rely on.
// pgx.Tx satisfies it.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
