package recommend

import (
	"fmt"

	"costscope/internal/store"
)

// Cost Explorer service names the built-in rules match on
const (
	serviceEC2 = "Amazon Elastic Compute Cloud - Compute"
	serviceRDS = "Amazon Relational Database Service"
	serviceS3  = "Amazon Simple Storage Service"
	serviceEKS = "Amazon Elastic Kubernetes Service"
)

// Rule is one static heuristic. A rule fires when the aggregated cost of
// its dimension over the lookback window exceeds Threshold, producing
// exactly one recommendation. Rules are independent; their order fixes
// output ordering only.
type Rule struct {
	// Name identifies the rule in listings
	Name string

	// Service is the billing service name the rule aggregates over;
	// empty means the window total
	Service string

	// Threshold is the USD ceiling above which the rule fires
	Threshold float64

	// SavingsRate is the fraction of observed cost reported as potential
	// savings. A heuristic estimate, not a guarantee.
	SavingsRate float64

	Priority string
	Category string
	Title    string
	Action   string
	Impact   string

	// Describe renders the recommendation description for the observed cost
	Describe func(cost float64) string
}

// DefaultRules is the fixed, ordered heuristic rule set
var DefaultRules = []Rule{
	{
		Name:        "ec2-right-sizing",
		Service:     serviceEC2,
		Threshold:   20,
		SavingsRate: 0.3,
		Priority:    store.PriorityHigh,
		Category:    "RIGHT_SIZING",
		Title:       "Consider Right-Sizing EC2 Instances",
		Action:      "Review EC2 instances and consider t3.micro or t3.small instances",
		Impact:      "medium",
		Describe: func(cost float64) string {
			return fmt.Sprintf("EC2 costs are $%.2f. Review instance types and consider downsizing.", cost)
		},
	},
	{
		Name:        "ec2-reserved-instances",
		Service:     serviceEC2,
		Threshold:   20,
		SavingsRate: 0.5,
		Priority:    store.PriorityMedium,
		Category:    "RESERVED_INSTANCES",
		Title:       "Consider Reserved Instances",
		Action:      "Analyze usage patterns and consider Reserved Instances",
		Impact:      "high",
		Describe: func(cost float64) string {
			return "For predictable workloads, Reserved Instances can save up to 75%."
		},
	},
	{
		Name:        "rds-instance-optimization",
		Service:     serviceRDS,
		Threshold:   10,
		SavingsRate: 0.4,
		Priority:    store.PriorityHigh,
		Category:    "INSTANCE_OPTIMIZATION",
		Title:       "Optimize RDS Instance Size",
		Action:      "Review RDS instance types and consider smaller instances",
		Impact:      "medium",
		Describe: func(cost float64) string {
			return fmt.Sprintf("RDS costs are $%.2f. Consider using db.t3.micro for development.", cost)
		},
	},
	{
		Name:        "s3-lifecycle-policies",
		Service:     serviceS3,
		Threshold:   5,
		SavingsRate: 0.6,
		Priority:    store.PriorityMedium,
		Category:    "LIFECYCLE_POLICIES",
		Title:       "Implement S3 Lifecycle Policies",
		Action:      "Set up lifecycle policies to transition data to IA and Glacier",
		Impact:      "high",
		Describe: func(cost float64) string {
			return fmt.Sprintf("S3 costs are $%.2f. Implement lifecycle policies to move old data to cheaper storage.", cost)
		},
	},
	{
		Name:        "eks-node-optimization",
		Service:     serviceEKS,
		Threshold:   15,
		SavingsRate: 0.7,
		Priority:    store.PriorityHigh,
		Category:    "NODE_OPTIMIZATION",
		Title:       "Optimize EKS Node Configuration",
		Action:      "Use spot instances for non-critical workloads and optimize node sizing",
		Impact:      "high",
		Describe: func(cost float64) string {
			return fmt.Sprintf("EKS costs are $%.2f. Review node group configuration and consider spot instances.", cost)
		},
	},
	{
		Name:        "budget-monitoring",
		Service:     "",
		Threshold:   50,
		SavingsRate: 0.2,
		Priority:    store.PriorityHigh,
		Category:    "BUDGET_MONITORING",
		Title:       "Set Up Budget Alerts",
		Action:      "Configure budgets with alerts at 50%, 80%, and 100% of budget",
		Impact:      "high",
		Describe: func(cost float64) string {
			return fmt.Sprintf("Total costs are $%.2f. Set up budget alerts to monitor spending.", cost)
		},
	},
	{
		Name:        "cost-allocation-tags",
		Service:     "",
		Threshold:   50,
		SavingsRate: 0.1,
		Priority:    store.PriorityMedium,
		Category:    "COST_ALLOCATION",
		Title:       "Implement Cost Allocation Tags",
		Action:      "Implement consistent tagging strategy across all resources",
		Impact:      "medium",
		Describe: func(cost float64) string {
			return "Use tags to track costs by project, environment, or team."
		},
	},
}
