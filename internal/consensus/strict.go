package consensus

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StrictEqual runs a computation a fixed number of times and agrees only
// when every evaluation returns byte-identical output.
type StrictEqual struct {
	evaluations int
	concurrency int
	logger      *zap.Logger
}

// NewStrictEqual creates a strict-equality reducer. evaluations below 1
// becomes 1; concurrency below 1 runs all evaluations at once.
func NewStrictEqual(evaluations, concurrency int, logger *zap.Logger) *StrictEqual {
	if evaluations < 1 {
		evaluations = 1
	}
	if concurrency < 1 || concurrency > evaluations {
		concurrency = evaluations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrictEqual{
		evaluations: evaluations,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Evaluations returns how many evaluations must agree
func (r *StrictEqual) Evaluations() int {
	return r.evaluations
}

// ReduceStrictEqual evaluates compute independently and returns the agreed
// output. The first evaluation error cancels the others and fails the round.
func (r *StrictEqual) ReduceStrictEqual(ctx context.Context, compute Computation) ([]byte, error) {
	start := time.Now()
	results := make([][]byte, r.evaluations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range r.evaluations {
		g.Go(func() error {
			out, err := compute(gctx)
			if err != nil {
				return fmt.Errorf("evaluation %d: %w", i+1, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Warn("consensus evaluation failed",
			zap.Int("evaluations", r.evaluations),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrAgreementFailure, err)
	}

	if distinct := distinctOutputs(results); len(distinct) > 1 {
		r.logger.Warn("consensus evaluations disagree",
			zap.Int("evaluations", r.evaluations),
			zap.Int("distinct", len(distinct)),
			zap.ByteStrings("outputs", distinct),
		)
		return nil, &DisagreementError{Evaluations: r.evaluations, Distinct: distinct}
	}

	r.logger.Debug("consensus reached",
		zap.Int("evaluations", r.evaluations),
		zap.Duration("duration", time.Since(start)),
	)
	return results[0], nil
}

func distinctOutputs(results [][]byte) [][]byte {
	var distinct [][]byte
	for _, out := range results {
		seen := false
		for _, d := range distinct {
			if bytes.Equal(d, out) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, out)
		}
	}
	return distinct
}
