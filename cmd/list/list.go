package list

import (
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles, budgets and rules",
		Long: `List local configuration and reference data.
Currently supports listing:
  - Available AWS credential profiles
  - Configured budget thresholds
  - Recommendation rules`,
	}

	// Add subcommands
	cmd.AddCommand(NewProfilesCmd())
	cmd.AddCommand(NewBudgetsCmd())
	cmd.AddCommand(NewRulesCmd())

	return cmd
}
