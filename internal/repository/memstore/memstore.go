// Package memstore is an in-process RemoteStore. It backs tests, multi-device
// simulations and REMOTE_BACKEND=memory, and counts every remote call it serves.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// Operation names used for call counters and failure injection
const (
	OpReadSession      = "read_session"
	OpReadAccount      = "read_account"
	OpClaimSession     = "claim_session"
	OpCreditSession    = "credit_session"
	OpResetSession     = "reset_session"
	OpIncrementBalance = "increment_balance"
	OpReadBoosts       = "read_boosts"
	OpUpsertBoost      = "upsert_boost"
	OpDeleteBoost      = "delete_boost"
)

var readOps = map[string]bool{OpReadSession: true, OpReadAccount: true, OpReadBoosts: true}

type account struct {
	session domain.Session
	balance decimal.Decimal
	boosts  map[domain.BoostKind]domain.BoostEntry
	ledger  map[string]decimal.Decimal
}

// Store is a thread-safe in-memory remote account store.
type Store struct {
	mu       sync.Mutex
	clock    domain.Clock
	accounts map[string]*account
	calls    map[string]int
	failures map[string][]error
	offline  error
}

var _ repository.RemoteStore = (*Store)(nil)

// New creates an empty store stamping server times from clock.
func New(clock domain.Clock) *Store {
	return &Store{
		clock:    clock,
		accounts: make(map[string]*account),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
	}
}

// CreateAccount adds an account with an inactive session. Existing accounts are left as they are.
func (s *Store) CreateAccount(accountID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; ok {
		return
	}
	s.accounts[accountID] = &account{
		balance: balance,
		boosts:  make(map[domain.BoostKind]domain.BoostEntry),
		ledger:  make(map[string]decimal.Decimal),
	}
}

// SetSession overwrites the remote session, simulating a write by another party.
func (s *Store) SetSession(accountID string, session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		acct.session = session
	}
}

// Session returns the stored session without counting a read.
func (s *Store) Session(accountID string) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		return acct.session
	}
	return domain.Session{}
}

// Balance returns the stored balance without counting a read.
func (s *Store) Balance(accountID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		return acct.balance
	}
	return decimal.Zero
}

// Calls returns how many times op was attempted.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Reads returns the number of read calls of any kind.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for op, n := range s.calls {
		if readOps[op] {
			total += n
		}
	}
	return total
}

// FailNext makes the next call of op fail with err. Calls queue in order.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// SetOffline makes every call fail with err until it is called again with nil.
func (s *Store) SetOffline(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = err
}

// begin counts the call and returns the account or the injected failure. Callers hold mu.
func (s *Store) begin(ctx context.Context, op, accountID string) (*account, error) {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.offline != nil {
		return nil, s.offline
	}
	if queued := s.failures[op]; len(queued) > 0 {
		s.failures[op] = queued[1:]
		return nil, queued[0]
	}
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return acct, nil
}

func (s *Store) now() time.Time {
	return domain.TruncateMillis(s.clock.Now())
}

func (s *Store) ReadSession(ctx context.Context, accountID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpReadSession, accountID)
	if err != nil {
		return domain.Session{}, err
	}
	return acct.session, nil
}

func (s *Store) ReadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpReadAccount, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:      accountID,
		Session: acct.session,
		Balance: acct.balance,
		Boosts:  acct.boostList(),
	}, nil
}

func (s *Store) ClaimSession(ctx context.Context, accountID string, claim domain.Session, duration time.Duration) (repository.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpClaimSession, accountID)
	if err != nil {
		return repository.ClaimResult{}, err
	}

	now := s.now()
	current := acct.session
	if current.Active {
		switch {
		case current.SameClaim(claim):
			return repository.ClaimResult{Claimed: true, Session: current}, nil
		case !current.Expired(now, duration):
			return repository.ClaimResult{Claimed: false, Session: current}, nil
		case !current.Credited():
			return repository.ClaimResult{Claimed: false, Session: current}, nil
		}
	}

	acct.session = domain.Session{
		Active:           true,
		StartTime:        domain.TruncateMillis(claim.StartTime),
		OwningDevice:     claim.OwningDevice,
		LastServerUpdate: now,
	}
	return repository.ClaimResult{Claimed: true, Session: acct.session}, nil
}

func (s *Store) CreditSession(ctx context.Context, accountID string, start time.Time, amount decimal.Decimal) (repository.CreditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpCreditSession, accountID)
	if err != nil {
		return repository.CreditResult{}, err
	}

	key := repository.SessionIdempotencyKey(start)
	if _, done := acct.ledger[key]; done {
		return repository.CreditResult{Credited: false, Balance: acct.balance, Session: acct.session}, nil
	}
	if domain.ToMillis(acct.session.StartTime) != domain.ToMillis(start) {
		return repository.CreditResult{}, fmt.Errorf("%w: remote session started at %d", domain.ErrClaimRejected, domain.ToMillis(acct.session.StartTime))
	}

	now := s.now()
	acct.balance = acct.balance.Add(amount)
	acct.ledger[key] = amount
	acct.session.CompletedAt = now
	acct.session.LastServerUpdate = now
	return repository.CreditResult{Credited: true, Balance: acct.balance, Session: acct.session}, nil
}

func (s *Store) ResetSession(ctx context.Context, accountID string, start time.Time) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpResetSession, accountID)
	if err != nil {
		return domain.Session{}, err
	}

	if acct.session.Active && domain.ToMillis(acct.session.StartTime) == domain.ToMillis(start) {
		acct.session = domain.Session{LastServerUpdate: s.now()}
	}
	return acct.session, nil
}

func (s *Store) IncrementBalance(ctx context.Context, accountID string, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpIncrementBalance, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: increment must be positive", domain.ErrInvalidInput)
	}
	if _, done := acct.ledger[idempotencyKey]; done {
		return acct.balance, nil
	}
	acct.balance = acct.balance.Add(amount)
	acct.ledger[idempotencyKey] = amount
	return acct.balance, nil
}

func (s *Store) ReadBoosts(ctx context.Context, accountID string) ([]domain.BoostEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpReadBoosts, accountID)
	if err != nil {
		return nil, err
	}
	return acct.boostList(), nil
}

func (s *Store) UpsertBoost(ctx context.Context, accountID string, entry domain.BoostEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpUpsertBoost, accountID)
	if err != nil {
		return err
	}
	acct.boosts[entry.Kind] = entry
	return nil
}

func (s *Store) DeleteBoost(ctx context.Context, accountID string, kind domain.BoostKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.begin(ctx, OpDeleteBoost, accountID)
	if err != nil {
		return err
	}
	delete(acct.boosts, kind)
	return nil
}

func (a *account) boostList() []domain.BoostEntry {
	list := make([]domain.BoostEntry, 0, len(a.boosts))
	for _, entry := range a.boosts {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Kind < list[j].Kind })
	return list
}
