package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truthpost/internal/factcheck"
)

var (
	identity     string
	checkTimeout time.Duration
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <text> <source-url>",
	Short: "Submit a claim for fact-checking",
	Long: `Submit records a pending claim. Nothing is fetched until the claim is
resolved.

With the default in-memory store the claim only lives for this process;
configure a postgres or mysql store to resolve it later.

Example:
  truthpost submit "Python was created by Guido van Rossum" \
    https://en.wikipedia.org/wiki/Python_\(programming_language\) --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: runSubmit,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <text> <source-url>",
	Short: "Submit a claim and resolve it immediately",
	Long: `Check submits a claim and fact-checks it in one run: the source is
fetched, the model is asked for a verdict several times, and the verdict is
recorded only if every evaluation agrees.

Example:
  truthpost check "The Great Wall of China is visible from space with the naked eye" \
    https://en.wikipedia.org/wiki/Great_Wall_of_China --as alice
  truthpost check "..." https://example.com --llm-provider ollama --llm-model llama3.1:8b`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(checkCmd)

	for _, cmd := range []*cobra.Command{submitCmd, checkCmd} {
		cmd.Flags().StringVar(&identity, "as", defaultIdentity(), "identity credited with the claim")
	}
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 3*time.Minute, "overall resolution timeout")
}

func defaultIdentity() string {
	if u := os.Getenv("TRUTHPOST_IDENTITY"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if identity == "" {
		return errors.New("an identity is required (--as)")
	}
	text, err := factcheck.ValidateSubmission(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	claim, err := a.engine.SubmitClaim(ctx, text, args[1], identity)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(claim.View())
	}
	fmt.Fprintf(os.Stderr, "✓ Submitted %s\n", claim.ID)
	writeClaim(os.Stdout, claim)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	if identity == "" {
		return errors.New("an identity is required (--as)")
	}
	text, err := factcheck.ValidateSubmission(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	claim, err := a.engine.SubmitClaim(ctx, text, args[1], identity)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Submitted %s, resolving with %d evaluations...\n", claim.ID, cfg.Consensus.Evaluations)
	}

	resolved, err := a.engine.ResolveClaim(ctx, claim.ID, identity)
	if err != nil {
		if factcheck.IsRetryable(err) {
			return fmt.Errorf("%s stays pending, evaluations did not agree (retry with 'truthpost resolve %s'): %w", claim.ID, claim.ID, err)
		}
		return fmt.Errorf("resolve %s: %w", claim.ID, err)
	}

	if jsonOutput {
		return printJSON(resolved.View())
	}
	writeClaim(os.Stdout, resolved)
	return nil
}
