package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"costscope/cmd/cmdutil"
	awsinternal "costscope/internal/aws"
	"costscope/internal/backup"
	"costscope/internal/billing"
	"costscope/internal/config"
	"costscope/internal/fetcher"
	"costscope/internal/logging"
	"costscope/internal/worker"
)

const dateLayout = "2006-01-02"

type fetchOptions struct {
	days     int
	start    string // explicit range start (YYYY-MM-DD)
	end      string // explicit range end, exclusive (YYYY-MM-DD)
	profiles string // comma-separated profiles to fetch in parallel
}

// NewFetchCmd creates the fetch command
func NewFetchCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch daily AWS costs into the store",
		Long: `Fetch daily per-service costs from Cost Explorer and upsert them
into the store. Re-running over the same window overwrites the same rows,
so the command is safe to repeat.

When --backup-bucket is configured the raw Cost Explorer payload is also
archived to S3, gzip-compressed under a dated key.

Examples:
  # Fetch the trailing 30 days for the current account
  costscope fetch

  # Fetch an explicit window (end date exclusive)
  costscope fetch --start 2026-07-01 --end 2026-08-01

  # Fetch the trailing week for several profiles in parallel
  costscope fetch --days 7 --profiles prod,staging,dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdutil.RequirePersistentStore(); err != nil {
				return err
			}
			if (opts.start == "") != (opts.end == "") {
				return fmt.Errorf("--start and --end must be used together")
			}
			if opts.start == "" && opts.days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", opts.days)
			}
			return runFetch(opts)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 30, "Number of trailing days to fetch")
	cmd.Flags().StringVar(&opts.start, "start", "", "Range start date YYYY-MM-DD (requires --end)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Range end date YYYY-MM-DD, exclusive (requires --start)")
	cmd.Flags().StringVar(&opts.profiles, "profiles", "", "Comma-separated AWS profiles to fetch (default: the configured profile)")

	return cmd
}

func runFetch(opts *fetchOptions) error {
	var start, end time.Time
	if opts.start != "" {
		var err error
		start, err = time.Parse(dateLayout, opts.start)
		if err != nil {
			return fmt.Errorf("invalid --start date %q: %w", opts.start, err)
		}
		end, err = time.Parse(dateLayout, opts.end)
		if err != nil {
			return fmt.Errorf("invalid --end date %q: %w", opts.end, err)
		}
		if !start.Before(end) {
			return fmt.Errorf("--start must be before --end")
		}
	}

	profiles := []string{config.Config.Profile}
	if opts.profiles != "" {
		profiles = strings.Split(opts.profiles, ",")
		for i := range profiles {
			profiles[i] = strings.TrimSpace(profiles[i])
		}
		for _, profile := range profiles {
			if !awsinternal.IsValidProfile(profile) {
				return fmt.Errorf("unknown AWS profile: %s", profile)
			}
		}
	}

	var (
		mu        sync.Mutex
		totalRows int
		failures  []string
	)

	tasks := make([]worker.Task, 0, len(profiles))
	for _, p := range profiles {
		profile := p
		tasks = append(tasks, worker.Task(func(ctx context.Context) error {
			rows, err := fetchProfile(ctx, profile, opts, start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Error("Fetch failed", err, map[string]interface{}{
					"profile": profile,
				})
				failures = append(failures, profile)
				return err
			}
			totalRows += rows
			return nil
		}))
	}

	pool := worker.NewPool(config.Config.MaxWorkers)
	pool.Start()
	pool.ExecuteTasks(tasks)
	pool.Stop()

	metrics := pool.GetMetrics()
	logging.Info("Fetch finished", map[string]interface{}{
		"profiles":     len(profiles),
		"rows_written": totalRows,
		"failed":       len(failures),
		"avg_task_ms":  metrics.AverageExecutionMs,
	})

	if len(failures) > 0 {
		return fmt.Errorf("fetch failed for profiles: %s", strings.Join(failures, ", "))
	}
	fmt.Printf("Wrote %d cost rows for %d profile(s)\n", totalRows, len(profiles))
	return nil
}

// fetchProfile runs one profile's fetch end to end: session, account
// discovery, store, billing client, optional backup writer.
func fetchProfile(ctx context.Context, profile string, opts *fetchOptions, start, end time.Time) (int, error) {
	sess, err := awsinternal.NewSession(profile, config.Config.Region)
	if err != nil {
		return 0, fmt.Errorf("failed to create session for profile %s: %w", profile, err)
	}

	accountID, err := cmdutil.ResolveAccountID(sess)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve account for profile %s: %w", profile, err)
	}

	st, err := cmdutil.OpenStore(ctx, sess)
	if err != nil {
		return 0, err
	}

	var bw fetcher.Backup
	if config.Config.BackupBucket != "" {
		writer, err := backup.NewWriter(sess, config.Config.BackupBucket, config.Config.BackupBucketRegion)
		if err != nil {
			return 0, fmt.Errorf("failed to create backup writer: %w", err)
		}
		bw = writer
	}

	f := fetcher.New(billing.NewCostExplorerClient(sess), st, bw)
	if !start.IsZero() {
		return f.FetchRange(ctx, accountID, start, end)
	}
	return f.FetchLastDays(ctx, accountID, opts.days)
}
