package store

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/truthpost/internal/model"
)

// MemoryClaimStore implements ClaimStore with a map plus an insertion index.
// It is not safe for concurrent use on its own; MemoryStore guards it.
type MemoryClaimStore struct {
	claims map[string]model.Claim
	order  []string
}

// NewMemoryClaimStore creates an empty claim store
func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		claims: make(map[string]model.Claim),
	}
}

// Put inserts or overwrites a claim
func (s *MemoryClaimStore) Put(c model.Claim) {
	if _, exists := s.claims[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.claims[c.ID] = c
}

// Get returns the claim or ErrNotFound
func (s *MemoryClaimStore) Get(id string) (model.Claim, error) {
	c, ok := s.claims[id]
	if !ok {
		return model.Claim{}, ErrNotFound
	}
	return c, nil
}

// Contains reports whether id is stored
func (s *MemoryClaimStore) Contains(id string) bool {
	_, ok := s.claims[id]
	return ok
}

// All returns every claim in insertion order
func (s *MemoryClaimStore) All() []model.Claim {
	out := make([]model.Claim, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.claims[id])
	}
	return out
}

// MemoryReputationLedger implements ReputationLedger with a map
type MemoryReputationLedger struct {
	scores map[string]int64
}

// NewMemoryReputationLedger creates an empty ledger
func NewMemoryReputationLedger() *MemoryReputationLedger {
	return &MemoryReputationLedger{scores: make(map[string]int64)}
}

// Get returns the score, 0 for unknown identities
func (l *MemoryReputationLedger) Get(identity string) int64 {
	return l.scores[identity]
}

// Increment adds one, creating the entry if absent
func (l *MemoryReputationLedger) Increment(identity string) {
	l.scores[identity]++
}

// All returns a copy of every entry
func (l *MemoryReputationLedger) All() map[string]int64 {
	out := make(map[string]int64, len(l.scores))
	for k, v := range l.scores {
		out[k] = v
	}
	return out
}

// MemoryStore is the in-process Store: a claim store, a reputation ledger
// and the claim sequence, all behind one mutex.
type MemoryStore struct {
	mu         sync.Mutex
	claims     *MemoryClaimStore
	reputation *MemoryReputationLedger
	seq        int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:     NewMemoryClaimStore(),
		reputation: NewMemoryReputationLedger(),
		now:        time.Now,
	}
}

// Submit allocates the next id and stores a pending claim
func (s *MemoryStore) Submit(_ context.Context, d Draft) (model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	c := model.NewPendingClaim(s.seq, d.Text, d.SourceURL, d.Submitter, s.now())
	s.claims.Put(c)
	return c, nil
}

// Get returns a claim by id
func (s *MemoryStore) Get(_ context.Context, id string) (model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims.Get(id)
}

// List returns claims in submission order
func (s *MemoryStore) List(_ context.Context) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims.All(), nil
}

// Reputation returns every ledger entry
func (s *MemoryStore) Reputation(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reputation.All(), nil
}

// UserReputation returns one identity's score
func (s *MemoryStore) UserReputation(_ context.Context, identity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reputation.Get(identity), nil
}

// Resolve writes the verdict and increments reputation under one lock
func (s *MemoryStore) Resolve(_ context.Context, id string, r model.Resolution) (model.Claim, error) {
	if !r.Verdict.IsTerminal() {
		return model.Claim{}, errInvalidResolution(r.Verdict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.claims.Get(id)
	if err != nil {
		return model.Claim{}, err
	}
	if c.Resolved {
		return model.Claim{}, ErrAlreadyResolved
	}

	resolved := r.Apply(c)
	s.claims.Put(resolved)
	s.reputation.Increment(resolved.Submitter)
	return resolved, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
