// Package analysis computes summaries, trends and breakdowns over stored
// cost rows. All functions are pure: deterministic for a given record set,
// no store access, no clock.
package analysis

import (
	"math"
	"sort"

	"costscope/internal/store"
)

// ServiceShare is one service's share of the window total
type ServiceShare struct {
	Service    string  `json:"service"`
	TotalCost  float64 `json:"total_cost"`
	Percentage float64 `json:"percentage"`
}

// Summary describes spend over a lookback window
type Summary struct {
	TotalCost        float64        `json:"total_cost"`
	DailyAverage     float64        `json:"daily_average"`
	PeriodDays       int            `json:"period_days"`
	TrendPercentage  float64        `json:"trend_percentage"`
	ServiceBreakdown []ServiceShare `json:"service_breakdown"`
}

// DailyCost is one point of the daily spend series
type DailyCost struct {
	Date string  `json:"date"`
	Cost float64 `json:"cost"`
}

// Trend directions
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendInsufficientData = "insufficient_data"
)

// Trends is the ordered daily series with a direction estimate
type Trends struct {
	DailyCosts      []DailyCost `json:"daily_costs"`
	TrendDirection  string      `json:"trend_direction"`
	TrendPercentage float64     `json:"trend_percentage"`
	PeriodDays      int         `json:"period_days"`
}

// ServiceStat is the per-service aggregate for the breakdown view
type ServiceStat struct {
	Service     string  `json:"service"`
	TotalCost   float64 `json:"total_cost"`
	AverageCost float64 `json:"average_cost"`
	RecordCount int     `json:"record_count"`
	Percentage  float64 `json:"percentage"`
}

// Summarize computes the window summary. The trend percentage is the change
// between the first-half and second-half daily averages of the series.
func Summarize(records []store.CostRecord, days int) Summary {
	total := windowTotal(records)

	var dailyAverage float64
	if days > 0 {
		dailyAverage = total / float64(days)
	}

	return Summary{
		TotalCost:        round2(total),
		DailyAverage:     round2(dailyAverage),
		PeriodDays:       days,
		TrendPercentage:  round2(halfOverHalfChange(dailySeries(records))),
		ServiceBreakdown: breakdownShares(records, total),
	}
}

// DailyTrends computes the ordered daily series and its direction
func DailyTrends(records []store.CostRecord, days int) Trends {
	series := dailySeries(records)

	direction := TrendInsufficientData
	var percentage float64
	if len(series) >= 2 {
		change := halfOverHalfChange(series)
		if change >= 0 {
			direction = TrendIncreasing
		} else {
			direction = TrendDecreasing
		}
		percentage = math.Abs(change)
	}

	return Trends{
		DailyCosts:      series,
		TrendDirection:  direction,
		TrendPercentage: round2(percentage),
		PeriodDays:      days,
	}
}

// ServiceBreakdown computes per-service aggregates, descending by cost.
// Returns an empty slice when the window total is zero.
func ServiceBreakdown(records []store.CostRecord) []ServiceStat {
	total := windowTotal(records)
	if total == 0 {
		return []ServiceStat{}
	}

	type acc struct {
		sum   float64
		count int
	}
	byService := make(map[string]*acc)
	for _, record := range records {
		if record.Service == store.TotalService {
			continue
		}
		a, ok := byService[record.Service]
		if !ok {
			a = &acc{}
			byService[record.Service] = a
		}
		a.sum += record.Cost
		a.count++
	}

	stats := make([]ServiceStat, 0, len(byService))
	for service, a := range byService {
		stats = append(stats, ServiceStat{
			Service:     service,
			TotalCost:   round2(a.sum),
			AverageCost: round2(a.sum / float64(a.count)),
			RecordCount: a.count,
			Percentage:  round2(a.sum / total * 100),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalCost != stats[j].TotalCost {
			return stats[i].TotalCost > stats[j].TotalCost
		}
		return stats[i].Service < stats[j].Service
	})
	return stats
}

// windowTotal sums all non-TOTAL rows
func windowTotal(records []store.CostRecord) float64 {
	var total float64
	for _, record := range records {
		if record.Service == store.TotalService {
			continue
		}
		total += record.Cost
	}
	return total
}

// dailySeries folds records into one point per date, ordered by date
func dailySeries(records []store.CostRecord) []DailyCost {
	byDate := make(map[string]float64)
	for _, record := range records {
		if record.Service == store.TotalService {
			continue
		}
		byDate[record.Date] += record.Cost
	}

	series := make([]DailyCost, 0, len(byDate))
	for date, cost := range byDate {
		series = append(series, DailyCost{Date: date, Cost: round2(cost)})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// halfOverHalfChange returns the percent change between the average of the
// first half of the series and the average of the second half. Zero when
// the series is too short or the first half averages zero.
func halfOverHalfChange(series []DailyCost) float64 {
	if len(series) < 2 {
		return 0
	}

	mid := len(series) / 2
	firstAvg := seriesAverage(series[:mid])
	secondAvg := seriesAverage(series[mid:])
	if firstAvg == 0 {
		return 0
	}
	return (secondAvg - firstAvg) / firstAvg * 100
}

func seriesAverage(series []DailyCost) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, point := range series {
		sum += point.Cost
	}
	return sum / float64(len(series))
}

// breakdownShares is the summary's compact per-service view
func breakdownShares(records []store.CostRecord, total float64) []ServiceShare {
	if total == 0 {
		return []ServiceShare{}
	}

	byService := make(map[string]float64)
	for _, record := range records {
		if record.Service == store.TotalService {
			continue
		}
		byService[record.Service] += record.Cost
	}

	shares := make([]ServiceShare, 0, len(byService))
	for service, sum := range byService {
		shares = append(shares, ServiceShare{
			Service:    service,
			TotalCost:  round2(sum),
			Percentage: round2(sum / total * 100),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].TotalCost != shares[j].TotalCost {
			return shares[i].TotalCost > shares[j].TotalCost
		}
		return shares[i].Service < shares[j].Service
	})
	return shares
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
