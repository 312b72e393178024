package store

import (
	"context"
	"errors"

	"github.com/ppiankov/truthpost/internal/model"
)

var (
	// ErrNotFound is returned when a claim id does not exist
	ErrNotFound = errors.New("claim not found")

	// ErrAlreadyResolved is returned when a resolution targets a terminal claim
	ErrAlreadyResolved = errors.New("claim already fact-checked")
)

// Draft carries the submitter-supplied fields of a new claim
type Draft struct {
	Text      string
	SourceURL string
	Submitter string
}

// Store is the authoritative, transactional owner of claims and reputation.
//
// Implementations serialise write phases: Submit allocates the next
// sequence value and persists the claim in one step, and Resolve re-checks
// the resolved flag inside the same transaction that writes the verdict and
// increments reputation, so at most one resolution per claim ever commits.
type Store interface {
	Submit(ctx context.Context, d Draft) (model.Claim, error)
	Get(ctx context.Context, id string) (model.Claim, error)
	List(ctx context.Context) ([]model.Claim, error)
	Reputation(ctx context.Context) (map[string]int64, error)
	UserReputation(ctx context.Context, identity string) (int64, error)
	Resolve(ctx context.Context, id string, r model.Resolution) (model.Claim, error)
	Close() error
}

// ClaimStore is the plain id -> claim mapping, kept in insertion order.
// No validation is performed here.
type ClaimStore interface {
	Put(c model.Claim)
	Get(id string) (model.Claim, error)
	Contains(id string) bool
	All() []model.Claim
}

// ReputationLedger maps submitter identity to an accumulated score
type ReputationLedger interface {
	Get(identity string) int64
	Increment(identity string)
	All() map[string]int64
}
