package list

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"costscope/internal/config"
)

// NewBudgetsCmd creates and returns the budgets command
func NewBudgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "List configured budget thresholds",
		Long: `List the budget thresholds the evaluate command checks spend
against. A zero total or an absent service entry means that dimension is
not evaluated.`,
		Example: `  # List configured budgets
  costscope list budgets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBudgets()
		},
	}

	return cmd
}

func runBudgets() error {
	budgets := config.Config.Budgets

	if budgets.Total > 0 {
		fmt.Printf("total: $%.2f\n", budgets.Total)
	} else {
		fmt.Println("total: not set")
	}

	services := make([]string, 0, len(budgets.Services))
	for service := range budgets.Services {
		services = append(services, service)
	}
	sort.Strings(services)
	for _, service := range services {
		fmt.Printf("%s: $%.2f\n", service, budgets.Services[service])
	}

	if budgets.SNSTopicARN != "" {
		fmt.Printf("sns_topic_arn: %s\n", budgets.SNSTopicARN)
	}
	return nil
}
