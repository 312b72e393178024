package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// claimsCmd represents the claims command
var claimsCmd = &cobra.Command{
	Use:   "claims [claim-id]",
	Short: "List claims, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClaims,
}

// reputationCmd represents the reputation command
var reputationCmd = &cobra.Command{
	Use:   "reputation [identity]",
	Short: "Show reputation scores",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReputation,
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	rootCmd.AddCommand(reputationCmd)
}

func runClaims(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		claim, err := a.engine.GetClaim(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(claim.View())
		}
		writeClaim(os.Stdout, claim)
		return nil
	}

	if jsonOutput {
		views, err := a.engine.GetClaims(ctx)
		if err != nil {
			return err
		}
		return printJSON(views)
	}

	claims, err := a.engine.ListClaims(ctx)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		fmt.Fprintln(os.Stderr, "No claims yet.")
		return nil
	}
	for _, c := range claims {
		writeClaim(os.Stdout, c)
	}
	return nil
}

func runReputation(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		score, err := a.engine.GetUserReputation(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"identity": args[0], "reputation": score})
		}
		fmt.Printf("%d\n", score)
		return nil
	}

	rep, err := a.engine.GetReputation(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(rep)
	}
	writeReputation(os.Stdout, rep)
	return nil
}
