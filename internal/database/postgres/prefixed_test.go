package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// prefixedStore isolates test accounts sharing one database.
type prefixedStore struct {
	*Store
	prefix string
}

func (p *prefixedStore) ReadSession(ctx context.Context, id string) (domain.Session, error) {
	return p.Store.ReadSession(ctx, p.prefix+id)
}

func (p *prefixedStore) ReadAccount(ctx context.Context, id string) (*domain.Account, error) {
	return p.Store.ReadAccount(ctx, p.prefix+id)
}

func (p *prefixedStore) ClaimSession(ctx context.Context, id string, claim domain.Session, d time.Duration) (repository.ClaimResult, error) {
	return p.Store.ClaimSession(ctx, p.prefix+id, claim, d)
}

func (p *prefixedStore) CreditSession(ctx context.Context, id string, start time.Time, amount decimal.Decimal) (repository.CreditResult, error) {
	return p.Store.CreditSession(ctx, p.prefix+id, start, amount)
}

func (p *prefixedStore) ResetSession(ctx context.Context, id string, start time.Time) (domain.Session, error) {
	return p.Store.ResetSession(ctx, p.prefix+id, start)
}

func (p *prefixedStore) IncrementBalance(ctx context.Context, id string, amount decimal.Decimal, source, key string) (decimal.Decimal, error) {
	return p.Store.IncrementBalance(ctx, p.prefix+id, amount, source, key)
}

func (p *prefixedStore) ReadBoosts(ctx context.Context, id string) ([]domain.BoostEntry, error) {
	return p.Store.ReadBoosts(ctx, p.prefix+id)
}

func (p *prefixedStore) UpsertBoost(ctx context.Context, id string, entry domain.BoostEntry) error {
	return p.Store.UpsertBoost(ctx, p.prefix+id, entry)
}

func (p *prefixedStore) DeleteBoost(ctx context.Context, id string, kind domain.BoostKind) error {
	return p.Store.DeleteBoost(ctx, p.prefix+id, kind)
}
