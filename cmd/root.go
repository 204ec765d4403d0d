package cmd

import (
	"strings"

	"costscope/cmd/evaluate"
	"costscope/cmd/fetch"
	initCmd "costscope/cmd/init"
	"costscope/cmd/list"
	"costscope/cmd/recommend"
	"costscope/cmd/serve"
	"costscope/cmd/version"
	"costscope/internal/config"
	"costscope/internal/logging"

	"github.com/spf13/cobra"
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	var configFile string

	// Initialize config
	if err := config.InitConfig(false); err != nil {
		return err
	}

	// Create default config if it doesn't exist
	if err := config.CreateDefaultConfig(); err != nil {
		return err
	}

	rootCmd := &cobra.Command{
		Use:   "costscope",
		Short: "costscope - AWS cost monitoring pipeline",
		Long: `costscope fetches daily AWS spend, evaluates it against budgets,
generates cost optimization recommendations and serves the results
over a read-only HTTP API.

Typical flow:
  costscope fetch       # pull daily costs into the store
  costscope evaluate    # compare spend against budget thresholds
  costscope recommend   # derive optimization recommendations
  costscope serve       # expose summaries, alerts and recommendations`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set config file if specified
			if configFile != "" {
				if err := config.SetConfigFile(configFile); err != nil {
					return err
				}
			}

			// Resolve config-file and environment values for everything
			// not set on the command line
			config.LoadSettings(cmd)

			// Configure logging from the resolved settings
			logFormat := logging.Text
			if config.Config.LogFormat == "json" {
				logFormat = logging.JSON
			}

			var level logging.Level
			switch strings.ToUpper(config.Config.LogLevel) {
			case "DEBUG":
				level = logging.DEBUG
			case "INFO":
				level = logging.INFO
			case "WARN":
				level = logging.WARN
			case "ERROR":
				level = logging.ERROR
			default:
				level = logging.INFO
			}

			logging.Configure(logging.LogConfig{
				Level:  level,
				Format: logFormat,
			})

			// Budgets have no flags, so resolve them once logging is up
			config.LoadBudgets()
			config.LogConfigurationSources(level == logging.DEBUG, cmd)

			return nil
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&config.Config.Profile, "profile", "p", "default", "AWS profile to use (supports SSO profiles)")
	rootCmd.PersistentFlags().StringVar(&config.Config.Region, "region", "us-east-1", "AWS region for the store and billing clients")
	rootCmd.PersistentFlags().StringVar(&config.Config.AccountID, "account-id", "", "Account ID override (default: discovered via STS)")
	rootCmd.PersistentFlags().StringVar(&config.Config.StoreBackend, "store", "dynamodb", "Store backend (dynamodb, or memory for serve demo runs)")
	rootCmd.PersistentFlags().StringVar(&config.Config.CostTable, "table", "costscope-cost-data", "DynamoDB table name")
	rootCmd.PersistentFlags().StringVar(&config.Config.StoreEndpoint, "store-endpoint", "", "DynamoDB endpoint override (local development)")
	rootCmd.PersistentFlags().StringVar(&config.Config.BackupBucket, "backup-bucket", "", "S3 bucket for raw billing payload backups")
	rootCmd.PersistentFlags().StringVar(&config.Config.BackupBucketRegion, "backup-bucket-region", "", "Region of the backup bucket")
	rootCmd.PersistentFlags().IntVar(&config.Config.MaxWorkers, "max-workers", config.Config.MaxWorkers, "Maximum number of concurrent workers")
	rootCmd.PersistentFlags().StringVar(&config.Config.LogFormat, "log-format", "text", "Log output format (text or json)")
	rootCmd.PersistentFlags().StringVar(&config.Config.LogLevel, "log-level", "INFO",
		"Set logging level (DEBUG, INFO, WARN, ERROR)")

	// Add commands
	rootCmd.AddCommand(fetch.NewFetchCmd())
	rootCmd.AddCommand(evaluate.NewEvaluateCmd())
	rootCmd.AddCommand(recommend.NewRecommendCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(list.NewListCmd())
	rootCmd.AddCommand(initCmd.NewInitCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd.Execute()
}
