package list

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"costscope/internal/recommend"
)

// NewRulesCmd creates and returns the rules command
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List recommendation rules",
		Long: `List the built-in recommendation rules with their thresholds.
A rule fires when its dimension's spend over the lookback window exceeds
the threshold.`,
		Example: `  # List all recommendation rules
  costscope list rules`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules()
		},
	}

	return cmd
}

func runRules() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIMENSION\tTHRESHOLD\tPRIORITY\tCATEGORY")
	for _, rule := range recommend.DefaultRules {
		dimension := rule.Service
		if dimension == "" {
			dimension = "total"
		}
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%s\n",
			rule.Name, dimension, rule.Threshold, rule.Priority, rule.Category)
	}
	return w.Flush()
}
