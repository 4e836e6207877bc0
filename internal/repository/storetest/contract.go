// Package storetest holds behavioural tests shared by every repository.RemoteStore.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// Harness wires one store instance for a test.
type Harness struct {
	Store repository.RemoteStore
	// Clock must be the clock the store stamps server times with.
	Clock *domain.SimulatedClock
	// CreateAccount seeds an account with a zero balance and an inactive session.
	CreateAccount func(t *testing.T, accountID string)
}

const duration = time.Hour

// Run executes the contract against stores built by newHarness.
func Run(t *testing.T, newHarness func(t *testing.T) Harness) {
	t.Run("unknown account", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.Store.ReadAccount(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("claim is first writer wins", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		now := h.Clock.Now()

		first := claim("dev-a", now)
		res, err := h.Store.ClaimSession(ctx, "acct", first, duration)
		require.NoError(t, err)
		assert.True(t, res.Claimed)
		assert.Equal(t, domain.DeviceID("dev-a"), res.Session.OwningDevice)

		again, err := h.Store.ClaimSession(ctx, "acct", first, duration)
		require.NoError(t, err)
		assert.True(t, again.Claimed, "re-pushing the same claim is idempotent")

		loser, err := h.Store.ClaimSession(ctx, "acct", claim("dev-b", now.Add(500*time.Millisecond)), duration)
		require.NoError(t, err)
		assert.False(t, loser.Claimed)
		assert.Equal(t, domain.DeviceID("dev-a"), loser.Session.OwningDevice)
		assert.Equal(t, domain.ToMillis(now), domain.ToMillis(loser.Session.StartTime))

		read, err := h.Store.ReadSession(ctx, "acct")
		require.NoError(t, err)
		assert.True(t, read.Active)
		assert.Equal(t, domain.DeviceID("dev-a"), read.OwningDevice)
		assert.False(t, read.LastServerUpdate.IsZero())
	})

	t.Run("expired uncredited session blocks new claims", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		start := h.Clock.Now()

		_, err := h.Store.ClaimSession(ctx, "acct", claim("dev-a", start), duration)
		require.NoError(t, err)
		h.Clock.Advance(duration + time.Minute)

		blocked, err := h.Store.ClaimSession(ctx, "acct", claim("dev-b", h.Clock.Now()), duration)
		require.NoError(t, err)
		assert.False(t, blocked.Claimed)

		_, err = h.Store.CreditSession(ctx, "acct", start, decimal.NewFromInt(1))
		require.NoError(t, err)

		next, err := h.Store.ClaimSession(ctx, "acct", claim("dev-b", h.Clock.Now()), duration)
		require.NoError(t, err)
		assert.True(t, next.Claimed, "a credited session no longer blocks")
		assert.False(t, next.Session.Credited())
	})

	t.Run("credit is idempotent per start time", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		start := h.Clock.Now()
		amount := decimal.RequireFromString("13.5")

		_, err := h.Store.ClaimSession(ctx, "acct", claim("dev-a", start), duration)
		require.NoError(t, err)

		first, err := h.Store.CreditSession(ctx, "acct", start, amount)
		require.NoError(t, err)
		assert.True(t, first.Credited)
		assert.True(t, first.Balance.Equal(amount))
		assert.True(t, first.Session.Credited())

		second, err := h.Store.CreditSession(ctx, "acct", start, amount)
		require.NoError(t, err)
		assert.False(t, second.Credited)
		assert.True(t, second.Balance.Equal(amount))

		reset, err := h.Store.ResetSession(ctx, "acct", start)
		require.NoError(t, err)
		assert.False(t, reset.Active)
		assert.True(t, reset.StartTime.IsZero())

		afterReset, err := h.Store.CreditSession(ctx, "acct", start, amount)
		require.NoError(t, err)
		assert.False(t, afterReset.Credited, "a retry after reset still finds the credit")

		acct, err := h.Store.ReadAccount(ctx, "acct")
		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(amount))
	})

	t.Run("zero credit is still recorded", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		start := h.Clock.Now()

		_, err := h.Store.ClaimSession(ctx, "acct", claim("dev-a", start), duration)
		require.NoError(t, err)

		first, err := h.Store.CreditSession(ctx, "acct", start, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, first.Credited)
		assert.True(t, first.Balance.IsZero())
		assert.True(t, first.Session.Credited())

		_, err = h.Store.ResetSession(ctx, "acct", start)
		require.NoError(t, err)

		retry, err := h.Store.CreditSession(ctx, "acct", start, decimal.Zero)
		require.NoError(t, err, "a retry after reset must not be rejected")
		assert.False(t, retry.Credited)
	})

	t.Run("credit for another start is rejected", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		start := h.Clock.Now()

		_, err := h.Store.ClaimSession(ctx, "acct", claim("dev-a", start), duration)
		require.NoError(t, err)

		_, err = h.Store.CreditSession(ctx, "acct", start.Add(-time.Minute), decimal.NewFromInt(5))
		assert.ErrorIs(t, err, domain.ErrClaimRejected)

		reset, err := h.Store.ResetSession(ctx, "acct", start.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, reset.Active, "reset for a different start leaves the session alone")
	})

	t.Run("increment balance is idempotent per key", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")

		total, err := h.Store.IncrementBalance(ctx, "acct", decimal.RequireFromString("2.25"), domain.SourceReferral, "referral:42")
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("2.25")))

		total, err = h.Store.IncrementBalance(ctx, "acct", decimal.RequireFromString("2.25"), domain.SourceReferral, "referral:42")
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("2.25")))

		total, err = h.Store.IncrementBalance(ctx, "acct", decimal.NewFromInt(1), domain.SourceStreak, "streak:7")
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("3.25")))
	})

	t.Run("boost round trip", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.CreateAccount(t, "acct")
		expires := domain.TruncateMillis(h.Clock.Now().Add(time.Hour))

		require.NoError(t, h.Store.UpsertBoost(ctx, "acct", domain.BoostEntry{
			Kind: domain.BoostAdWatch, Multiplier: decimal.NewFromInt(2), ExpiresAt: &expires, Source: "ad",
		}))
		require.NoError(t, h.Store.UpsertBoost(ctx, "acct", domain.BoostEntry{
			Kind: domain.BoostPermanent, Multiplier: decimal.RequireFromString("1.5"), Permanent: true, Source: "shop",
		}))
		require.NoError(t, h.Store.UpsertBoost(ctx, "acct", domain.BoostEntry{
			Kind: domain.BoostPermanent, Multiplier: decimal.RequireFromString("1.75"), Permanent: true, Source: "shop",
		}))

		boosts, err := h.Store.ReadBoosts(ctx, "acct")
		require.NoError(t, err)
		require.Len(t, boosts, 2)
		assert.Equal(t, domain.BoostAdWatch, boosts[0].Kind)
		require.NotNil(t, boosts[0].ExpiresAt)
		assert.Equal(t, domain.ToMillis(expires), domain.ToMillis(*boosts[0].ExpiresAt))
		assert.True(t, boosts[1].Multiplier.Equal(decimal.RequireFromString("1.75")), "last write wins")
		assert.Nil(t, boosts[1].ExpiresAt)

		require.NoError(t, h.Store.DeleteBoost(ctx, "acct", domain.BoostAdWatch))
		require.NoError(t, h.Store.DeleteBoost(ctx, "acct", domain.BoostStreak), "deleting an absent kind is a no-op")

		acct, err := h.Store.ReadAccount(ctx, "acct")
		require.NoError(t, err)
		require.Len(t, acct.Boosts, 1)
		assert.Equal(t, domain.BoostPermanent, acct.Boosts[0].Kind)
	})
}

func claim(device domain.DeviceID, start time.Time) domain.Session {
	return domain.Session{Active: true, StartTime: domain.TruncateMillis(start), OwningDevice: device}
}
