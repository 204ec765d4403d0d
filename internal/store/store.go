package store

import "context"

// TotalService is the pseudo service name used for per-day total rows
const TotalService = "TOTAL"

// Alert types emitted by budget evaluation
const (
	AlertTypeBudgetExceeded        = "budget_exceeded"
	AlertTypeServiceBudgetExceeded = "service_budget_exceeded"
)

// Recommendation priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// CostRecord is one (account, day, service) cost row. Records are immutable
// for a given key; a re-fetch overwrites the same key with identical data.
type CostRecord struct {
	AccountID      string  `json:"account_id" dynamodbav:"account_id"`
	Date           string  `json:"timestamp" dynamodbav:"timestamp"` // YYYY-MM-DD
	Service        string  `json:"service" dynamodbav:"service"`
	Cost           float64 `json:"cost" dynamodbav:"cost"`
	TotalDailyCost float64 `json:"total_daily_cost" dynamodbav:"total_daily_cost"`
	ProcessedAt    string  `json:"processed_at" dynamodbav:"processed_at"`
}

// BudgetAlert is an append-only record of a threshold breach at evaluation
// time. Alerts form a time series, not a current-state table.
type BudgetAlert struct {
	AccountID   string  `json:"account_id" dynamodbav:"account_id"`
	Timestamp   string  `json:"timestamp" dynamodbav:"timestamp"` // RFC3339
	AlertType   string  `json:"alert_type" dynamodbav:"alert_type"`
	Service     string  `json:"service" dynamodbav:"service"`
	CurrentCost float64 `json:"current_cost" dynamodbav:"current_cost"`
	BudgetLimit float64 `json:"budget_limit" dynamodbav:"budget_limit"`
	Message     string  `json:"message" dynamodbav:"message"`
}

// Recommendation is a derived optimization suggestion. Safe to regenerate or
// delete; never authoritative.
type Recommendation struct {
	AccountID        string  `json:"account_id" dynamodbav:"account_id"`
	Timestamp        string  `json:"timestamp" dynamodbav:"timestamp"` // RFC3339
	RecommendationID string  `json:"recommendation_id" dynamodbav:"recommendation_id"`
	Service          string  `json:"service" dynamodbav:"service"`
	Priority         string  `json:"priority" dynamodbav:"priority"`
	Category         string  `json:"category" dynamodbav:"category"`
	Title            string  `json:"title" dynamodbav:"title"`
	Description      string  `json:"description" dynamodbav:"description"`
	PotentialSavings float64 `json:"potential_savings" dynamodbav:"potential_savings"`
	Action           string  `json:"action" dynamodbav:"action"`
	Impact           string  `json:"impact" dynamodbav:"impact"`
}

// Store persists pipeline output. Cost records upsert by
// (account, date, service); alerts and recommendations append.
type Store interface {
	// PutCostRecords upserts cost rows keyed by (account_id, date, service)
	PutCostRecords(ctx context.Context, records []CostRecord) error

	// QueryCostRecords returns cost rows for the account with
	// startDate <= date <= endDate, ordered by date ascending
	QueryCostRecords(ctx context.Context, accountID, startDate, endDate string) ([]CostRecord, error)

	// PutAlerts appends budget alerts
	PutAlerts(ctx context.Context, alerts []BudgetAlert) error

	// RecentAlerts returns up to limit alerts, most recent first
	RecentAlerts(ctx context.Context, accountID string, limit int) ([]BudgetAlert, error)

	// PutRecommendations appends recommendations
	PutRecommendations(ctx context.Context, recs []Recommendation) error

	// RecentRecommendations returns up to limit recommendations, most recent first
	RecentRecommendations(ctx context.Context, accountID string, limit int) ([]Recommendation, error)
}
