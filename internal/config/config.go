package config

import "runtime"

// BudgetConfig holds the budget thresholds evaluated by the evaluate command.
// A zero Total or an absent service entry means that dimension is not evaluated.
type BudgetConfig struct {
	// Total is the overall budget limit in USD for the lookback window
	Total float64

	// Services maps a Cost Explorer service name to its budget limit in USD
	Services map[string]float64

	// SNSTopicARN, when set, is the topic alerts are published to
	SNSTopicARN string
}

// GlobalConfig holds the global configuration for the application
type GlobalConfig struct {
	// Profile is the AWS profile to use
	Profile string

	// Region is the AWS region for the store and billing clients
	Region string

	// AccountID overrides STS account discovery when set
	AccountID string

	// StoreBackend selects the store implementation (dynamodb or memory)
	StoreBackend string

	// CostTable is the DynamoDB table holding cost records, alerts and recommendations
	CostTable string

	// StoreEndpoint overrides the DynamoDB endpoint (local development)
	StoreEndpoint string

	// BackupBucket is the S3 bucket raw billing payloads are copied to
	BackupBucket string

	// BackupBucketRegion is the region of the backup bucket
	BackupBucketRegion string

	// MaxWorkers defines the maximum number of concurrent workers
	MaxWorkers int

	// LogFormat is the format for logging
	LogFormat string

	// LogLevel is the minimum level logged
	LogLevel string

	// Budgets holds the thresholds used by budget evaluation
	Budgets BudgetConfig
}

// Config is the global configuration instance
var Config = &GlobalConfig{
	Profile:      "default",
	Region:       "us-east-1",
	StoreBackend: "dynamodb",
	CostTable:    "costscope-cost-data",
	MaxWorkers:   runtime.NumCPU() * 4, // Default to 4x CPU cores since tasks are I/O bound
	LogFormat:    "text",
	LogLevel:     "INFO",
}
