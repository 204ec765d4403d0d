package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"costscope/internal/store"
)

func record(date, service string, cost float64) store.CostRecord {
	return store.CostRecord{
		AccountID: "123456789012",
		Date:      date,
		Service:   service,
		Cost:      cost,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, 30)

	assert.Equal(t, 0.0, summary.TotalCost)
	assert.Equal(t, 0.0, summary.DailyAverage)
	assert.Equal(t, 30, summary.PeriodDays)
	assert.Equal(t, 0.0, summary.TrendPercentage)
	assert.Empty(t, summary.ServiceBreakdown)
}

func TestSummarizeTotalsAndAverage(t *testing.T) {
	records := []store.CostRecord{
		record("2026-08-01", "Amazon EC2", 10),
		record("2026-08-01", "Amazon S3", 5),
		record("2026-08-02", "Amazon EC2", 15),
		// TOTAL rows must not be double counted
		record("2026-08-01", store.TotalService, 15),
		record("2026-08-02", store.TotalService, 15),
	}

	summary := Summarize(records, 10)

	assert.Equal(t, 30.0, summary.TotalCost)
	assert.Equal(t, 3.0, summary.DailyAverage)
	assert.InDelta(t, summary.TotalCost, summary.DailyAverage*float64(summary.PeriodDays), 0.01)
}

func TestSummarizeBreakdownPercentagesSumTo100(t *testing.T) {
	records := []store.CostRecord{
		record("2026-08-01", "Amazon EC2", 33.33),
		record("2026-08-01", "Amazon S3", 33.33),
		record("2026-08-01", "Amazon RDS", 33.34),
	}

	summary := Summarize(records, 1)

	var sum float64
	for _, share := range summary.ServiceBreakdown {
		sum += share.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestSummarizeTrendHalfOverHalf(t *testing.T) {
	// First half averages 10/day, second half 20/day: +100%
	records := []store.CostRecord{
		record("2026-08-01", "Amazon EC2", 10),
		record("2026-08-02", "Amazon EC2", 10),
		record("2026-08-03", "Amazon EC2", 20),
		record("2026-08-04", "Amazon EC2", 20),
	}

	summary := Summarize(records, 4)
	assert.Equal(t, 100.0, summary.TrendPercentage)
}

func TestDailyTrendsDirection(t *testing.T) {
	tests := []struct {
		name      string
		records   []store.CostRecord
		direction string
	}{
		{
			name: "increasing",
			records: []store.CostRecord{
				record("2026-08-01", "Amazon EC2", 5),
				record("2026-08-02", "Amazon EC2", 15),
			},
			direction: TrendIncreasing,
		},
		{
			name: "decreasing",
			records: []store.CostRecord{
				record("2026-08-01", "Amazon EC2", 15),
				record("2026-08-02", "Amazon EC2", 5),
			},
			direction: TrendDecreasing,
		},
		{
			name:      "insufficient data",
			records:   []store.CostRecord{record("2026-08-01", "Amazon EC2", 15)},
			direction: TrendInsufficientData,
		},
		{
			name:      "empty",
			records:   nil,
			direction: TrendInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends := DailyTrends(tt.records, 30)
			assert.Equal(t, tt.direction, trends.TrendDirection)
			// Reported magnitude is always non-negative
			assert.GreaterOrEqual(t, trends.TrendPercentage, 0.0)
		})
	}
}

func TestDailyTrendsSeriesOrderedByDate(t *testing.T) {
	records := []store.CostRecord{
		record("2026-08-03", "Amazon EC2", 1),
		record("2026-08-01", "Amazon EC2", 2),
		record("2026-08-02", "Amazon S3", 3),
		record("2026-08-02", "Amazon EC2", 4),
	}

	trends := DailyTrends(records, 3)

	assert.Len(t, trends.DailyCosts, 3)
	assert.Equal(t, "2026-08-01", trends.DailyCosts[0].Date)
	assert.Equal(t, "2026-08-02", trends.DailyCosts[1].Date)
	assert.Equal(t, 7.0, trends.DailyCosts[1].Cost)
	assert.Equal(t, "2026-08-03", trends.DailyCosts[2].Date)
}

func TestServiceBreakdown(t *testing.T) {
	records := []store.CostRecord{
		record("2026-08-01", "Amazon EC2", 30),
		record("2026-08-02", "Amazon EC2", 30),
		record("2026-08-01", "Amazon S3", 40),
		record("2026-08-01", store.TotalService, 70),
	}

	stats := ServiceBreakdown(records)

	assert.Len(t, stats, 2)
	// Descending by total cost
	assert.Equal(t, "Amazon EC2", stats[0].Service)
	assert.Equal(t, 60.0, stats[0].TotalCost)
	assert.Equal(t, 30.0, stats[0].AverageCost)
	assert.Equal(t, 2, stats[0].RecordCount)
	assert.Equal(t, 60.0, stats[0].Percentage)
	assert.Equal(t, "Amazon S3", stats[1].Service)
	assert.Equal(t, 40.0, stats[1].Percentage)
}

func TestServiceBreakdownEmpty(t *testing.T) {
	assert.Empty(t, ServiceBreakdown(nil))
	// Only TOTAL rows means no spend to break down
	assert.Empty(t, ServiceBreakdown([]store.CostRecord{
		record("2026-08-01", store.TotalService, 0),
	}))
}
