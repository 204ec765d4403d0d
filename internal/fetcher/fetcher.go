package fetcher

import (
	"context"
	"fmt"
	"time"

	"costscope/internal/billing"
	"costscope/internal/logging"
	"costscope/internal/store"
)

const dateLayout = "2006-01-02"

// Backup receives raw billing payloads for audit storage
type Backup interface {
	Write(ctx context.Context, accountID string, payload []byte) (string, error)
}

// Fetcher pulls daily per-service costs from the billing API and upserts
// them into the store. Rows are buffered and written only after the whole
// range fetch succeeds, so a failed run leaves prior data untouched.
type Fetcher struct {
	billing billing.Client
	store   store.Store
	backup  Backup // nil disables raw payload backup
	now     func() time.Time
}

// New creates a Fetcher. backup may be nil.
func New(client billing.Client, st store.Store, backup Backup) *Fetcher {
	return &Fetcher{
		billing: client,
		store:   st,
		backup:  backup,
		now:     time.Now,
	}
}

// FetchLastDays fetches the trailing days window up to today and upserts the
// normalized rows. Returns the number of rows written.
func (f *Fetcher) FetchLastDays(ctx context.Context, accountID string, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	end := f.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)
	return f.FetchRange(ctx, accountID, start, end)
}

// FetchRange fetches [start, end) at daily granularity and upserts the rows.
// Both bounds are treated as dates; end is exclusive per the billing API
// convention.
func (f *Fetcher) FetchRange(ctx context.Context, accountID string, start, end time.Time) (int, error) {
	if accountID == "" {
		return 0, fmt.Errorf("account id is required")
	}
	if !start.Before(end) {
		return 0, fmt.Errorf("start %s must be before end %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}

	startDate := start.Format(dateLayout)
	endDate := end.Format(dateLayout)
	logging.StageStart("fetch", accountID, map[string]interface{}{
		"start": startDate,
		"end":   endDate,
	})

	usage, err := f.billing.DailyCostsByService(ctx, startDate, endDate)
	if err != nil {
		logging.StageError("fetch", accountID, err)
		return 0, err
	}

	records := f.buildRecords(accountID, start, end, usage.Days)
	if err := f.store.PutCostRecords(ctx, records); err != nil {
		logging.StageError("fetch", accountID, err)
		return 0, fmt.Errorf("failed to store cost records: %w", err)
	}

	// Raw backup is best-effort; a failed upload must not fail the fetch
	if f.backup != nil {
		if key, err := f.backup.Write(ctx, accountID, usage.Raw); err != nil {
			logging.Warn("Raw payload backup failed", map[string]interface{}{
				"account_id": accountID,
				"error":      err.Error(),
			})
		} else {
			logging.Debug("Raw payload backed up", map[string]interface{}{
				"account_id": accountID,
				"key":        key,
			})
		}
	}

	logging.StageComplete("fetch", accountID, len(records))
	return len(records), nil
}

// buildRecords normalizes fetched days into store rows. Every date in
// [start, end) produces at least a TOTAL row; dates the billing API returned
// nothing for get a zero-cost placeholder so new or empty accounts store a
// complete series instead of failing.
func (f *Fetcher) buildRecords(accountID string, start, end time.Time, days []billing.DayCosts) []store.CostRecord {
	processedAt := f.now().UTC().Format(time.RFC3339)
	byDate := make(map[string]billing.DayCosts, len(days))
	for _, day := range days {
		byDate[day.Date] = day
	}

	var records []store.CostRecord
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		day, ok := byDate[date]
		if !ok {
			day = billing.DayCosts{Date: date}
		}

		for service, cost := range day.Services {
			records = append(records, store.CostRecord{
				AccountID:      accountID,
				Date:           date,
				Service:        service,
				Cost:           cost,
				TotalDailyCost: day.Total,
				ProcessedAt:    processedAt,
			})
		}

		// Per-day total row; doubles as the zero-cost placeholder for
		// days without any usage
		records = append(records, store.CostRecord{
			AccountID:      accountID,
			Date:           date,
			Service:        store.TotalService,
			Cost:           day.Total,
			TotalDailyCost: day.Total,
			ProcessedAt:    processedAt,
		})
	}
	return records
}
