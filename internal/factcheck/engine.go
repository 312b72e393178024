// Package factcheck owns the claim lifecycle: submission, consensus-backed
// resolution against the claim's source, and the read-side accessors.
package factcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/llm"
	"github.com/ppiankov/truthpost/internal/model"
	"github.com/ppiankov/truthpost/internal/notify"
	"github.com/ppiankov/truthpost/internal/oracle"
	"github.com/ppiankov/truthpost/internal/store"
)

// Oracle provides the two nondeterministic primitives a resolution needs
type Oracle interface {
	FetchPage(ctx context.Context, rawURL string, mode oracle.Mode) (string, error)
	Judge(ctx context.Context, prompt string, format llm.Format) ([]byte, error)
}

// Engine submits and resolves claims. It holds no locks of its own; the
// store serialises every write.
type Engine struct {
	store    store.Store
	oracle   Oracle
	reducer  consensus.Reducer
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires an engine. notifier and logger may be nil.
func NewEngine(s store.Store, o Oracle, r consensus.Reducer, n notify.Notifier, logger *zap.Logger) *Engine {
	if n == nil {
		n = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    s,
		oracle:   o,
		reducer:  r,
		notifier: n,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitClaim records a new pending claim. No external calls are made.
func (e *Engine) SubmitClaim(ctx context.Context, text, sourceURL, submitter string) (model.Claim, error) {
	claim, err := e.store.Submit(ctx, store.Draft{
		Text:      text,
		SourceURL: sourceURL,
		Submitter: submitter,
	})
	if err != nil {
		e.logger.Error("claim submission failed", zap.String("submitter", submitter), zap.Error(err))
		return model.Claim{}, fmt.Errorf("submit claim: %w", err)
	}

	e.logger.Info("claim submitted",
		zap.String("claim_id", claim.ID),
		zap.String("submitter", submitter),
		zap.String("source_url", sourceURL),
	)
	return claim, nil
}

// ResolveClaim fact-checks a pending claim against its source and commits
// the agreed verdict. Nothing is written unless every step succeeds.
func (e *Engine) ResolveClaim(ctx context.Context, id, caller string) (model.Claim, error) {
	start := time.Now()
	log := e.logger.With(zap.String("claim_id", id), zap.String("caller", caller))

	claim, err := e.resolve(ctx, id)
	if err != nil {
		log.Warn("claim resolution failed",
			zap.Bool("retryable", IsRetryable(err)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return model.Claim{}, err
	}

	log.Info("claim resolved",
		zap.String("verdict", string(claim.Verdict)),
		zap.String("digest", claim.Digest),
		zap.Duration("duration", time.Since(start)),
	)

	if err := e.notifier.ClaimResolved(ctx, claim); err != nil {
		log.Warn("resolution announcement failed", zap.Error(err))
	}
	return claim, nil
}

func (e *Engine) resolve(ctx context.Context, id string) (model.Claim, error) {
	claim, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Claim{}, err
	}
	if claim.Resolved {
		return model.Claim{}, ErrAlreadyResolved
	}

	agreed, err := e.reducer.ReduceStrictEqual(ctx, e.computation(claim))
	if err != nil {
		// Evaluation errors wrap ErrAgreementFailure; a malformed reply must
		// not carry that chain since it is not retryable.
		if errors.Is(err, llm.ErrMalformedOutput) {
			return model.Claim{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
		}
		if !errors.Is(err, consensus.ErrAgreementFailure) {
			err = fmt.Errorf("%w: %w", consensus.ErrAgreementFailure, err)
		}
		return model.Claim{}, err
	}

	result, err := ParseResult(agreed)
	if err != nil {
		return model.Claim{}, err
	}

	digest, err := consensus.Digest(agreed)
	if err != nil {
		return model.Claim{}, err
	}

	return e.store.Resolve(ctx, id, model.Resolution{
		Verdict:     result.Verdict,
		Explanation: result.Explanation,
		Digest:      digest,
		ResolvedAt:  e.now(),
	})
}

// computation is one evaluation of the fact check: fetch the source as
// text, ask for a structured verdict, canonicalize it.
func (e *Engine) computation(claim model.Claim) consensus.Computation {
	return func(ctx context.Context) ([]byte, error) {
		page, err := e.oracle.FetchPage(ctx, claim.SourceURL, oracle.ModeText)
		if err != nil {
			return nil, err
		}

		out, err := e.oracle.Judge(ctx, BuildPrompt(claim.Text, page), llm.FormatStructured)
		if err != nil {
			return nil, err
		}

		canonical, err := consensus.Canonicalize(out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", llm.ErrMalformedOutput, err)
		}
		return canonical, nil
	}
}

// GetClaim returns one claim
func (e *Engine) GetClaim(ctx context.Context, id string) (model.Claim, error) {
	return e.store.Get(ctx, id)
}

// ListClaims returns every claim in submission order
func (e *Engine) ListClaims(ctx context.Context) ([]model.Claim, error) {
	return e.store.List(ctx)
}

// GetClaims returns every claim keyed by id; empty, never nil, when none
func (e *Engine) GetClaims(ctx context.Context) (map[string]model.ClaimView, error) {
	claims, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make(map[string]model.ClaimView, len(claims))
	for _, c := range claims {
		views[c.ID] = c.View()
	}
	return views, nil
}

// PendingClaimIDs returns the ids of unresolved claims in submission order
func (e *Engine) PendingClaimIDs(ctx context.Context) ([]string, error) {
	claims, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, c := range claims {
		if !c.Resolved {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// GetReputation returns every reputation entry; empty, never nil, when none
func (e *Engine) GetReputation(ctx context.Context) (map[string]int64, error) {
	rep, err := e.store.Reputation(ctx)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		rep = map[string]int64{}
	}
	return rep, nil
}

// GetUserReputation returns identity's score, 0 when it has none
func (e *Engine) GetUserReputation(ctx context.Context, identity string) (int64, error) {
	return e.store.UserReputation(ctx, identity)
}
