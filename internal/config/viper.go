package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"costscope/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// parameterSource tracks where each parameter value came from
type parameterSource struct {
	Key    string
	Value  interface{}
	Source string
}

// configFlags maps each config key to the command line flag that overrides it
var configFlags = map[string]string{
	"aws.profile":          "profile",
	"aws.region":           "region",
	"aws.account_id":       "account-id",
	"app.max_workers":      "max-workers",
	"app.log_format":       "log-format",
	"app.log_level":        "log-level",
	"store.backend":        "store",
	"store.table":          "table",
	"store.endpoint":       "store-endpoint",
	"backup.bucket":        "backup-bucket",
	"backup.bucket_region": "backup-bucket-region",
}

// flagChanged reports whether the flag overriding a config key was set on
// the command line, checking local flags and persistent flags up the chain
func flagChanged(key string, cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}

	flagName := configFlags[key]
	if flagName == "" {
		flagName = strings.Replace(key, ".", "-", -1)
	}

	if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
		return true
	}

	for current := cmd; current != nil; current = current.Parent() {
		if f := current.PersistentFlags().Lookup(flagName); f != nil && f.Changed {
			return true
		}
	}
	return false
}

// getParameterSource determines where a parameter value came from (config file, env var, flag, or default)
func getParameterSource(key string, cmd *cobra.Command) parameterSource {
	flagValue := viper.Get(key)
	envKey := "COSTSCOPE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))

	if flagChanged(key, cmd) {
		return parameterSource{key, flagValue, "command line flag"}
	}

	// Check if value is set by environment variable
	if _, exists := os.LookupEnv(envKey); exists {
		return parameterSource{key, flagValue, "environment variable"}
	}

	// Check if value is set in config file
	if viper.GetViper().InConfig(key) {
		return parameterSource{key, flagValue, "config file"}
	}

	// Value is using default
	return parameterSource{key, flagValue, "default value"}
}

// LogConfigurationSources logs the source of each configuration parameter
func LogConfigurationSources(shouldLog bool, cmd *cobra.Command) {
	if !shouldLog {
		return
	}

	logging.Debug("Configuration parameter sources:", nil)

	// List of all configuration parameters to check
	params := []string{
		"aws.profile",
		"aws.region",
		"aws.account_id",
		"app.max_workers",
		"app.log_format",
		"app.log_level",
		"store.backend",
		"store.table",
		"store.endpoint",
		"backup.bucket",
		"backup.bucket_region",
		"budgets.total",
		"budgets.sns_topic_arn",
	}

	// Log the source of each parameter
	for _, param := range params {
		source := getParameterSource(param, cmd)
		logging.Debug(fmt.Sprintf("  %s = %v (from %s)", source.Key, source.Value, source.Source), nil)
	}
}

// InitConfig initializes the Viper configuration
func InitConfig(shouldLog bool) error {
	// Set config name and type
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config search paths
	viper.AddConfigPath(".") // Current directory only

	// Set environment variable prefix
	viper.SetEnvPrefix("COSTSCOPE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults for all configuration values
	viper.SetDefault("aws.profile", "default")
	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("aws.account_id", "")
	viper.SetDefault("app.max_workers", Config.MaxWorkers)
	viper.SetDefault("app.log_format", "text")
	viper.SetDefault("app.log_level", "INFO")
	viper.SetDefault("store.backend", "dynamodb")
	viper.SetDefault("store.table", "costscope-cost-data")
	viper.SetDefault("store.endpoint", "")
	viper.SetDefault("backup.bucket", "")
	viper.SetDefault("backup.bucket_region", "")
	viper.SetDefault("budgets.total", 0.0)
	viper.SetDefault("budgets.services", map[string]float64{})
	viper.SetDefault("budgets.sns_topic_arn", "")

	// Try to read config file but don't error if not found
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Only return error if it's not a missing config file
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is okay, we'll use defaults and env vars
		if shouldLog {
			logging.Debug("No config file found, using defaults and environment variables", nil)
		}
	} else if shouldLog {
		logging.Debug("Loaded config file", map[string]interface{}{
			"path": viper.ConfigFileUsed(),
		})
	}

	return nil
}

// LoadSettings copies the resolved viper values into the global Config.
// Flags bind straight onto Config fields, so each field is taken from viper
// only when its flag was not set on the command line; together that yields
// flag > env > config file > default precedence.
func LoadSettings(cmd *cobra.Command) {
	setString("aws.profile", &Config.Profile, cmd)
	setString("aws.region", &Config.Region, cmd)
	setString("aws.account_id", &Config.AccountID, cmd)
	setInt("app.max_workers", &Config.MaxWorkers, cmd)
	setString("app.log_format", &Config.LogFormat, cmd)
	setString("app.log_level", &Config.LogLevel, cmd)
	setString("store.backend", &Config.StoreBackend, cmd)
	setString("store.table", &Config.CostTable, cmd)
	setString("store.endpoint", &Config.StoreEndpoint, cmd)
	setString("backup.bucket", &Config.BackupBucket, cmd)
	setString("backup.bucket_region", &Config.BackupBucketRegion, cmd)
}

func setString(key string, dst *string, cmd *cobra.Command) {
	if !flagChanged(key, cmd) {
		*dst = viper.GetString(key)
	}
}

func setInt(key string, dst *int, cmd *cobra.Command) {
	if !flagChanged(key, cmd) {
		*dst = viper.GetInt(key)
	}
}

// LoadBudgets populates the budget thresholds from the resolved viper state.
// Called after flags are bound so command line overrides are honored.
func LoadBudgets() {
	Config.Budgets.Total = viper.GetFloat64("budgets.total")
	Config.Budgets.SNSTopicARN = viper.GetString("budgets.sns_topic_arn")

	// Viper lowercases map keys; normalize explicitly so lookups against
	// billing service names can be case-insensitive
	services := make(map[string]float64)
	for name, limit := range viper.GetStringMap("budgets.services") {
		switch v := limit.(type) {
		case float64:
			services[strings.ToLower(name)] = v
		case int:
			services[strings.ToLower(name)] = float64(v)
		}
	}
	Config.Budgets.Services = services
}

// SetConfigFile sets a custom config file path and reloads the configuration
func SetConfigFile(configFile string) error {
	// Set the config file path
	viper.SetConfigFile(configFile)

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default config file if it doesn't exist
func CreateDefaultConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("error getting home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".costscope")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(DefaultConfigContent), 0644); err != nil {
			return fmt.Errorf("error writing default config file: %w", err)
		}
	}

	return nil
}

// DefaultConfigContent is the config file written by CreateDefaultConfig and `costscope init config`
const DefaultConfigContent = `# costscope Configuration File

# AWS Configuration
aws:
  profile: default  # AWS profile to use (supports SSO profiles)
  region: us-east-1  # Region for the store and billing clients
  account_id: ""  # Account ID override (default: discovered via STS)

# Application Configuration
app:
  max_workers: 8  # Maximum number of concurrent workers
  log_format: text  # Log output format (text or json)
  log_level: INFO  # Set logging level (DEBUG, INFO, WARN, ERROR)

# Store Configuration
store:
  backend: dynamodb  # Store implementation (dynamodb; memory is serve-only demo mode)
  table: costscope-cost-data  # DynamoDB table name
  endpoint: ""  # DynamoDB endpoint override (local development)

# Raw Payload Backup Configuration
backup:
  bucket: ""  # S3 bucket for raw billing payload backups (empty disables backup)
  bucket_region: ""  # Region of the backup bucket

# Budget Thresholds (USD over the evaluation window)
budgets:
  total: 50.00  # Overall budget (0 disables the overall check)
  sns_topic_arn: ""  # Optional SNS topic for alert notifications
  services:
    Amazon Elastic Compute Cloud - Compute: 20.00
    Amazon Relational Database Service: 15.00
    Amazon Simple Storage Service: 5.00
    Amazon Elastic Kubernetes Service: 25.00
`
