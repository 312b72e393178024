// Package consensus reduces a nondeterministic computation to one agreed value.
//
// A Computation may touch the network and a language model, so independent
// evaluations of it can legitimately differ. A Reducer runs it under its own
// evaluation policy and returns a value only when the evaluations are judged
// equal; otherwise it fails with ErrAgreementFailure. Callers must not assume
// how many evaluations happen or how they are scheduled.
package consensus

import (
	"context"
	"errors"
	"fmt"
)

// ErrAgreementFailure is returned when no agreed value could be produced.
// It is operational and retryable: nothing has been committed.
var ErrAgreementFailure = errors.New("consensus: no agreement reached")

// Computation is one side-effecting evaluation producing canonical bytes
type Computation func(ctx context.Context) ([]byte, error)

// Reducer turns a Computation into a single agreed result
type Reducer interface {
	ReduceStrictEqual(ctx context.Context, compute Computation) ([]byte, error)
}

// DisagreementError reports evaluations that finished but differ
type DisagreementError struct {
	Evaluations int
	Distinct    [][]byte // Each distinct output, in first-seen order
}

func (e *DisagreementError) Error() string {
	return fmt.Sprintf("%v: %d evaluations produced %d distinct results", ErrAgreementFailure, e.Evaluations, len(e.Distinct))
}

func (e *DisagreementError) Unwrap() error {
	return ErrAgreementFailure
}
