package recommend

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"costscope/cmd/cmdutil"
	"costscope/internal/recommend"
)

type recommendOptions struct {
	days int
}

// NewRecommendCmd creates the recommend command
func NewRecommendCmd() *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate cost optimization recommendations",
		Long: `Apply the static heuristic rules to aggregated spend over the
lookback window and store the recommendations that fired. The output is
derived data: re-running is always safe.

Use "costscope list rules" to see the rule set.

Examples:
  # Generate recommendations from the trailing 30 days
  costscope recommend

  # Use a shorter window
  costscope recommend --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdutil.RequirePersistentStore(); err != nil {
				return err
			}
			if opts.days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", opts.days)
			}
			return runRecommend(opts)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 30, "Number of trailing days to analyze")

	return cmd
}

func runRecommend(opts *recommendOptions) error {
	ctx := context.Background()

	sess, err := cmdutil.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	accountID, err := cmdutil.ResolveAccountID(sess)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	st, err := cmdutil.OpenStore(ctx, sess)
	if err != nil {
		return err
	}

	generator := recommend.New(st, nil)
	recs, err := generator.Generate(ctx, accountID, opts.days)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No recommendations for the current spend profile")
		return nil
	}

	fmt.Printf("%d recommendation(s):\n", len(recs))
	for _, rec := range recs {
		fmt.Printf("  [%s] %s: %s (potential savings $%.2f)\n",
			rec.Priority, rec.Service, rec.Title, rec.PotentialSavings)
	}
	return nil
}
