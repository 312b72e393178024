package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/truthpost/internal/model"
)

// Resolver resolves one claim on behalf of a caller
type Resolver interface {
	ResolveClaim(ctx context.Context, id, caller string) (model.Claim, error)
}

// ResolveJob resolves a single claim
type ResolveJob struct {
	Index    int
	ClaimID  string
	Caller   string
	Resolver Resolver
}

// Execute executes the resolve job
func (j *ResolveJob) Execute(ctx context.Context) Result {
	claim, err := j.Resolver.ResolveClaim(ctx, j.ClaimID, j.Caller)
	return &ResolveResult{
		Index:   j.Index,
		ClaimID: j.ClaimID,
		Claim:   claim,
		Error:   err,
	}
}

// ResolveResult is the outcome for one claim in a batch
type ResolveResult struct {
	Index   int
	ClaimID string
	Claim   model.Claim
	Error   error
}

// GetError returns the error from the resolve result
func (r *ResolveResult) GetError() error {
	return r.Error
}

// BatchResolver resolves many claims concurrently. Every resolution goes
// through the same engine, so the store still enforces at most one
// resolution per claim.
type BatchResolver struct {
	resolver    Resolver
	concurrency int
}

// NewBatchResolver creates a new batch resolver
func NewBatchResolver(resolver Resolver, concurrency int) *BatchResolver {
	return &BatchResolver{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ResolveIDs resolves the given claims and returns one result per id, in
// input order. Duplicate ids are resolved once.
func (b *BatchResolver) ResolveIDs(ctx context.Context, ids []string, caller string) []*ResolveResult {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []*ResolveResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, id := range ids {
		pool.Submit(&ResolveJob{
			Index:    i,
			ClaimID:  id,
			Caller:   caller,
			Resolver: b.resolver,
		})
	}

	ordered := make([]*ResolveResult, len(ids))
	for _, r := range pool.Wait() {
		res := r.(*ResolveResult)
		ordered[res.Index] = res
	}

	// Jobs dropped by cancellation never ran
	for i, res := range ordered {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("resolution of %s did not run", ids[i])
			}
			ordered[i] = &ResolveResult{Index: i, ClaimID: ids[i], Error: err}
		}
	}

	return ordered
}

// ResolveFile reads claim ids from a file and resolves them
func (b *BatchResolver) ResolveFile(ctx context.Context, filePath, caller string) ([]*ResolveResult, error) {
	ids, err := ReadClaimIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claim ids: %w", err)
	}

	return b.ResolveIDs(ctx, ids, caller), nil
}

// ReadClaimIDsFromFile reads claim ids from a file (one per line; blank
// lines and # comments are skipped)
func ReadClaimIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
