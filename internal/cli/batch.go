package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truthpost/internal/factcheck"
	"github.com/ppiankov/truthpost/internal/worker"
)

var (
	concurrency    int
	resolvePending bool
	idsFile        string
	batchTimeout   time.Duration
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [claim-id...]",
	Short: "Fact-check pending claims",
	Long: `Resolve fact-checks one or more pending claims in parallel. Each claim is
resolved at most once; a claim whose evaluations disagree stays pending and
can be resolved again later.

Example:
  truthpost resolve claim_1
  truthpost resolve claim_1 claim_2 --concurrency 2
  truthpost resolve --pending
  truthpost resolve --file ids.txt --timeout 30m`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of claims resolved at once")
	resolveCmd.Flags().BoolVar(&resolvePending, "pending", false, "resolve every pending claim")
	resolveCmd.Flags().StringVar(&idsFile, "file", "", "read claim ids from a file (one per line)")
	resolveCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	resolveCmd.Flags().StringVar(&identity, "as", defaultIdentity(), "identity requesting the resolution")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !resolvePending && idsFile == "" {
		return errors.New("give claim ids, --pending or --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ids := append([]string(nil), args...)
	if idsFile != "" {
		fromFile, err := worker.ReadClaimIDsFromFile(idsFile)
		if err != nil {
			return fmt.Errorf("read claim ids: %w", err)
		}
		ids = append(ids, fromFile...)
	}
	if resolvePending {
		pending, err := a.engine.PendingClaimIDs(ctx)
		if err != nil {
			return err
		}
		ids = append(ids, pending...)
	}

	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Nothing to resolve.\n")
		return nil
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Resolving %d claims with %d workers...\n\n", len(ids), concurrency)
	}

	results := worker.NewBatchResolver(a.engine, concurrency).ResolveIDs(ctx, ids, identity)

	if jsonOutput {
		return printJSON(batchReport(results))
	}

	var resolved, retryable, failed int
	for _, r := range results {
		switch {
		case r.Error == nil:
			resolved++
			fmt.Fprintf(os.Stderr, "✓ %s: %s\n", r.ClaimID, r.Claim.Verdict)
		case factcheck.IsRetryable(r.Error):
			retryable++
			fmt.Fprintf(os.Stderr, "↻ %s: %v\n", r.ClaimID, r.Error)
		default:
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.ClaimID, r.Error)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Resolved:  %d\n", resolved)
	fmt.Fprintf(os.Stderr, "  Retryable: %d\n", retryable)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", failed)

	if resolved == 0 && len(results) > 0 {
		return errors.New("no claim was resolved")
	}
	return nil
}

type batchEntry struct {
	ClaimID   string `json:"claim_id"`
	Verdict   string `json:"verdict,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func batchReport(results []*worker.ResolveResult) []batchEntry {
	out := make([]batchEntry, 0, len(results))
	for _, r := range results {
		e := batchEntry{ClaimID: r.ClaimID}
		if r.Error != nil {
			e.Error = r.Error.Error()
			e.Retryable = factcheck.IsRetryable(r.Error)
		} else {
			e.Verdict = string(r.Claim.Verdict)
		}
		out = append(out, e)
	}
	return out
}
