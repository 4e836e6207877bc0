package boost

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

var one = decimal.NewFromInt(1)

var validate = validator.New()

// Registry holds at most one boost per kind and is the single authority on boost expiry.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[domain.BoostKind]domain.BoostEntry
	loadedAt time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.BoostKind]domain.BoostEntry)}
}

// Validate rejects malformed entries with domain.ErrInvalidBoost.
func Validate(entry domain.BoostEntry) error {
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBoost, err)
	}
	if entry.Multiplier.LessThan(one) {
		return fmt.Errorf("%w: multiplier %s is below 1", domain.ErrInvalidBoost, entry.Multiplier)
	}
	if entry.Permanent && entry.ExpiresAt != nil {
		return fmt.Errorf("%w: permanent entry %s carries an expiry", domain.ErrInvalidBoost, entry.Kind)
	}
	return nil
}

// Register inserts or replaces the entry for its kind. Last write wins.
func (r *Registry) Register(entry domain.BoostEntry) error {
	if err := Validate(entry); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[entry.Kind] = entry
	r.mu.Unlock()
	return nil
}

// Revoke removes the entry for kind. Unknown kinds are ignored.
func (r *Registry) Revoke(kind domain.BoostKind) {
	r.mu.Lock()
	delete(r.entries, kind)
	r.mu.Unlock()
}

// EffectiveMultiplier is the product of every entry live at now, or 1 when none are.
func (r *Registry) EffectiveMultiplier(now time.Time) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product := one
	for _, entry := range r.entries {
		if entry.LiveAt(now) {
			product = product.Mul(entry.Multiplier)
		}
	}
	return product
}

// Active returns the entries live at now ordered by kind.
func (r *Registry) Active(now time.Time) []domain.BoostEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]domain.BoostEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.LiveAt(now) {
			active = append(active, entry)
		}
	}
	sortEntries(active)
	return active
}

// Entries returns every held entry, expired ones included.
func (r *Registry) Entries() []domain.BoostEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.BoostEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		all = append(all, entry)
	}
	sortEntries(all)
	return all
}

// Replace swaps the whole registry for entries read from the remote at loadedAt.
// Malformed entries are dropped; the number dropped is returned.
func (r *Registry) Replace(entries []domain.BoostEntry, loadedAt time.Time) int {
	next := make(map[domain.BoostKind]domain.BoostEntry, len(entries))
	skipped := 0
	for _, entry := range entries {
		if Validate(entry) != nil {
			skipped++
			continue
		}
		next[entry.Kind] = entry
	}

	r.mu.Lock()
	r.entries = next
	r.loadedAt = loadedAt
	r.mu.Unlock()
	return skipped
}

// Stale reports whether the registry has not been loaded from the remote within ttl.
func (r *Registry) Stale(now time.Time, ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt.IsZero() || now.Sub(r.loadedAt) > ttl
}

func sortEntries(entries []domain.BoostEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Kind < entries[j].Kind })
}
