package localcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

func sampleSnapshot() domain.CachedSnapshot {
	start := domain.FromMillis(1_767_000_000_123)
	expires := start.Add(time.Hour)
	return domain.CachedSnapshot{
		AccountID: "acct/1",
		Session: domain.Session{
			Active:           true,
			StartTime:        start,
			OwningDevice:     "dev-a",
			LastServerUpdate: start.Add(time.Second),
		},
		Balance: decimal.RequireFromString("1234.56789012"),
		Boosts: []domain.BoostEntry{
			{Kind: domain.BoostAdWatch, Multiplier: decimal.NewFromInt(2), ExpiresAt: &expires, Source: "ad"},
			{Kind: domain.BoostPermanent, Multiplier: decimal.RequireFromString("1.5"), Permanent: true, Source: "shop"},
		},
		FetchedAt:    start.Add(2 * time.Second),
		TTL:          5 * time.Minute,
		LocalWriteAt: start,
		PendingPush:  true,
		UpdatedAt:    start.Add(3 * time.Second),
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return map[string]Store{"memory": NewMemory(), "file": fileStore}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleSnapshot()

			_, found, err := store.Load(ctx, want.AccountID)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Save(ctx, want))

			got, found, err := store.Load(ctx, want.AccountID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, want.Session, got.Session)
			assert.True(t, want.Balance.Equal(got.Balance))
			assert.Equal(t, want.TTL, got.TTL)
			assert.True(t, got.PendingPush)
			assert.Equal(t, want.LocalWriteAt, got.LocalWriteAt)
			require.Len(t, got.Boosts, 2)
			assert.Equal(t, *want.Boosts[0].ExpiresAt, *got.Boosts[0].ExpiresAt)
			assert.Nil(t, got.Boosts[1].ExpiresAt)

			require.NoError(t, store.Clear(ctx, want.AccountID))
			_, found, err = store.Load(ctx, want.AccountID)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "acct.toml"), []byte("version = [oops"), 0o600))

	_, _, err = store.Load(context.Background(), "acct")
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestFileStore_FutureSchemaIsRejected(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "acct.toml"), []byte("version = 99\n"), 0o600))

	_, _, err = store.Load(context.Background(), "acct")
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
	assert.Contains(t, err.Error(), "unsupported cache schema version")
}

func TestFileStore_ActiveWithoutStartIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "acct.toml"), []byte("version = 1\n[session]\nactive = true\n"), 0o600))

	_, _, err = store.Load(context.Background(), "acct")
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestFileStore_ConcurrentSaves(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot := sampleSnapshot()
			snapshot.Balance = decimal.NewFromInt(int64(i))
			assert.NoError(t, store.Save(ctx, snapshot))
		}(i)
	}
	wg.Wait()

	got, found, err := store.Load(ctx, sampleSnapshot().AccountID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Balance.GreaterThanOrEqual(decimal.Zero))

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestMemory_CountsSaves(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Save(context.Background(), domain.CachedSnapshot{AccountID: "a"}))
	require.NoError(t, mem.Save(context.Background(), domain.CachedSnapshot{AccountID: "a"}))
	assert.Equal(t, 2, mem.Saves())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(ctx, sampleSnapshot()), context.Canceled)
		})
	}
}
