package localcache

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

const currentSchemaVersion = 1

// Times are stored as epoch millis, zero meaning unset, matching the remote encoding.
type fileSchema struct {
	Version        int           `toml:"version"`
	AccountID      string        `toml:"account_id"`
	Session        sessionSchema `toml:"session"`
	Balance        string        `toml:"balance"`
	Boosts         []boostSchema `toml:"boosts,omitempty"`
	FetchedAtMs    int64         `toml:"fetched_at_ms"`
	TTLMs          int64         `toml:"ttl_ms"`
	LocalWriteAtMs int64         `toml:"local_write_at_ms"`
	PendingPush    bool          `toml:"pending_push"`
	UpdatedAtMs    int64         `toml:"updated_at_ms"`
}

type sessionSchema struct {
	Active             bool   `toml:"active"`
	StartTimeMs        int64  `toml:"start_time_ms"`
	DeviceID           string `toml:"device_id"`
	LastServerUpdateMs int64  `toml:"last_server_update_ms"`
	CompletedAtMs      int64  `toml:"completed_at_ms"`
}

type boostSchema struct {
	Kind        string `toml:"kind"`
	Multiplier  string `toml:"multiplier"`
	ExpiresAtMs int64  `toml:"expires_at_ms,omitempty"`
	Permanent   bool   `toml:"permanent"`
	Source      string `toml:"source"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Balance == "" {
		s.Balance = "0"
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported cache schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

func toSchema(snapshot domain.CachedSnapshot) fileSchema {
	boosts := make([]boostSchema, 0, len(snapshot.Boosts))
	for _, entry := range snapshot.Boosts {
		var expires int64
		if entry.ExpiresAt != nil {
			expires = domain.ToMillis(*entry.ExpiresAt)
		}
		boosts = append(boosts, boostSchema{
			Kind:        string(entry.Kind),
			Multiplier:  entry.Multiplier.String(),
			ExpiresAtMs: expires,
			Permanent:   entry.Permanent,
			Source:      entry.Source,
		})
	}

	return fileSchema{
		Version:   currentSchemaVersion,
		AccountID: snapshot.AccountID,
		Session: sessionSchema{
			Active:             snapshot.Session.Active,
			StartTimeMs:        domain.ToMillis(snapshot.Session.StartTime),
			DeviceID:           string(snapshot.Session.OwningDevice),
			LastServerUpdateMs: domain.ToMillis(snapshot.Session.LastServerUpdate),
			CompletedAtMs:      domain.ToMillis(snapshot.Session.CompletedAt),
		},
		Balance:        snapshot.Balance.String(),
		Boosts:         boosts,
		FetchedAtMs:    domain.ToMillis(snapshot.FetchedAt),
		TTLMs:          snapshot.TTL.Milliseconds(),
		LocalWriteAtMs: domain.ToMillis(snapshot.LocalWriteAt),
		PendingPush:    snapshot.PendingPush,
		UpdatedAtMs:    domain.ToMillis(snapshot.UpdatedAt),
	}
}

func fromSchema(file fileSchema) (domain.CachedSnapshot, error) {
	balance, err := decimal.NewFromString(file.Balance)
	if err != nil {
		return domain.CachedSnapshot{}, fmt.Errorf("%w: balance %q: %v", domain.ErrCacheCorrupt, file.Balance, err)
	}

	boosts := make([]domain.BoostEntry, 0, len(file.Boosts))
	for _, b := range file.Boosts {
		mult, err := decimal.NewFromString(b.Multiplier)
		if err != nil {
			return domain.CachedSnapshot{}, fmt.Errorf("%w: boost %s multiplier %q: %v", domain.ErrCacheCorrupt, b.Kind, b.Multiplier, err)
		}
		entry := domain.BoostEntry{
			Kind:       domain.BoostKind(b.Kind),
			Multiplier: mult,
			Permanent:  b.Permanent,
			Source:     b.Source,
		}
		if b.ExpiresAtMs != 0 {
			expires := domain.FromMillis(b.ExpiresAtMs)
			entry.ExpiresAt = &expires
		}
		boosts = append(boosts, entry)
	}

	session := domain.Session{
		Active:           file.Session.Active,
		StartTime:        domain.FromMillis(file.Session.StartTimeMs),
		OwningDevice:     domain.DeviceID(file.Session.DeviceID),
		LastServerUpdate: domain.FromMillis(file.Session.LastServerUpdateMs),
		CompletedAt:      domain.FromMillis(file.Session.CompletedAtMs),
	}
	if !session.Valid() {
		return domain.CachedSnapshot{}, fmt.Errorf("%w: active session without start time", domain.ErrCacheCorrupt)
	}

	return domain.CachedSnapshot{
		AccountID:    file.AccountID,
		Session:      session,
		Balance:      balance,
		Boosts:       boosts,
		FetchedAt:    domain.FromMillis(file.FetchedAtMs),
		TTL:          time.Duration(file.TTLMs) * time.Millisecond,
		LocalWriteAt: domain.FromMillis(file.LocalWriteAtMs),
		PendingPush:  file.PendingPush,
		UpdatedAt:    domain.FromMillis(file.UpdatedAtMs),
	}, nil
}
