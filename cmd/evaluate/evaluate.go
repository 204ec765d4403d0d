package evaluate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"costscope/cmd/cmdutil"
	"costscope/internal/budget"
	"costscope/internal/config"
)

type evaluateOptions struct {
	days int
}

// NewEvaluateCmd creates the evaluate command
func NewEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate stored costs against budget thresholds",
		Long: `Sum stored costs over the lookback window and emit one alert per
budget dimension whose spend exceeds its threshold. Alerts are appended
to the store as a time series; each run that still exceeds a threshold
produces a new alert.

When budgets.sns_topic_arn is configured each alert is also published
to that SNS topic.

Examples:
  # Evaluate the trailing 30 days
  costscope evaluate

  # Evaluate the trailing week
  costscope evaluate --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdutil.RequirePersistentStore(); err != nil {
				return err
			}
			if opts.days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", opts.days)
			}
			return runEvaluate(opts)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 30, "Number of trailing days to evaluate")

	return cmd
}

func runEvaluate(opts *evaluateOptions) error {
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

	var notifier budget.Notifier
	if arn := config.Config.Budgets.SNSTopicARN; arn != "" {
		notifier = budget.NewSNSNotifier(sess, arn)
	}

	evaluator := budget.New(st, config.Config.Budgets, notifier)
	alerts, err := evaluator.Evaluate(ctx, accountID, opts.days)
	if err != nil {
		return err
	}

	if len(alerts) == 0 {
		fmt.Println("All budgets within limits")
		return nil
	}

	fmt.Printf("%d budget alert(s):\n", len(alerts))
	for _, alert := range alerts {
		fmt.Printf("  [%s] %s\n", alert.AlertType, alert.Message)
	}
	return nil
}
