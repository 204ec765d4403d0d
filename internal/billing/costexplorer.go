package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/costexplorer"
	"github.com/aws/aws-sdk-go/service/costexplorer/costexploreriface"

	"costscope/internal/aws/ratelimit"
	"costscope/internal/logging"
)

const blendedCostMetric = "BlendedCost"

// DayCosts holds normalized per-service costs for one day
type DayCosts struct {
	// Date in YYYY-MM-DD form
	Date string

	// Services maps service name to blended cost in USD
	Services map[string]float64

	// Total is the blended cost across all services for the day
	Total float64
}

// CostAndUsage is the normalized result of a range fetch plus the raw
// upstream payload for audit backup
type CostAndUsage struct {
	Days []DayCosts
	Raw  []byte
}

// Client fetches cost data from a billing API
type Client interface {
	// DailyCostsByService returns per-service daily costs for
	// start <= day < end (end exclusive, Cost Explorer convention)
	DailyCostsByService(ctx context.Context, start, end string) (*CostAndUsage, error)
}

// CostExplorerClient implements Client against the AWS Cost Explorer API
type CostExplorerClient struct {
	api     costexploreriface.CostExplorerAPI
	limiter *ratelimit.ServiceLimiter
}

// NewCostExplorerClient creates a Cost Explorer client. The Cost Explorer
// API is only served from us-east-1.
func NewCostExplorerClient(sess *session.Session) *CostExplorerClient {
	cfg := aws.NewConfig().WithRegion("us-east-1")
	return &CostExplorerClient{
		api:     costexplorer.New(sess, cfg),
		limiter: ratelimit.GetServiceLimiter("costexplorer"),
	}
}

// NewCostExplorerClientWithAPI creates a client with an injected API
func NewCostExplorerClientWithAPI(api costexploreriface.CostExplorerAPI) *CostExplorerClient {
	return &CostExplorerClient{
		api:     api,
		limiter: ratelimit.GetServiceLimiter("costexplorer"),
	}
}

// DailyCostsByService implements Client
func (c *CostExplorerClient) DailyCostsByService(ctx context.Context, start, end string) (*CostAndUsage, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &costexplorer.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: aws.String(costexplorer.GranularityDaily),
		Metrics: []*string{
			aws.String(blendedCostMetric),
			aws.String("UnblendedCost"),
			aws.String("UsageQuantity"),
		},
		GroupBy: []*costexplorer.GroupDefinition{
			{
				Type: aws.String(costexplorer.GroupDefinitionTypeDimension),
				Key:  aws.String("SERVICE"),
			},
		},
	}

	var pages []*costexplorer.GetCostAndUsageOutput
	for {
		var out *costexplorer.GetCostAndUsageOutput
		err := c.limiter.Execute(ctx, "GetCostAndUsage", func() error {
			var callErr error
			out, callErr = c.api.GetCostAndUsageWithContext(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get cost and usage for %s to %s: %w", start, end, err)
		}

		pages = append(pages, out)
		if aws.StringValue(out.NextPageToken) == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	days, err := normalize(pages)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw cost payload: %w", err)
	}

	logging.Debug("Fetched cost and usage", map[string]interface{}{
		"start": start,
		"end":   end,
		"days":  len(days),
		"pages": len(pages),
	})

	return &CostAndUsage{Days: days, Raw: raw}, nil
}

// normalize folds Cost Explorer result pages into one DayCosts per day
func normalize(pages []*costexplorer.GetCostAndUsageOutput) ([]DayCosts, error) {
	byDate := make(map[string]*DayCosts)

	for _, page := range pages {
		for _, result := range page.ResultsByTime {
			date := aws.StringValue(result.TimePeriod.Start)
			day, ok := byDate[date]
			if !ok {
				day = &DayCosts{Date: date, Services: make(map[string]float64)}
				byDate[date] = day
			}

			for _, group := range result.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				service := aws.StringValue(group.Keys[0])
				amount, err := metricAmount(group.Metrics)
				if err != nil {
					return nil, fmt.Errorf("bad amount for %s on %s: %w", service, date, err)
				}
				day.Services[service] += amount
			}

			// With a GroupBy, Cost Explorer leaves ResultsByTime.Total
			// empty; fall back to the sum of groups when absent
			if amount, err := metricAmount(result.Total); err == nil && amount > 0 {
				day.Total = amount
			}
		}
	}

	var days []DayCosts
	for _, day := range byDate {
		if day.Total == 0 {
			for _, cost := range day.Services {
				day.Total += cost
			}
		}
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// metricAmount extracts the blended cost amount from a metrics map
func metricAmount(metrics map[string]*costexplorer.MetricValue) (float64, error) {
	metric, ok := metrics[blendedCostMetric]
	if !ok || metric.Amount == nil {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(aws.StringValue(metric.Amount), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable cost amount %q: %w", aws.StringValue(metric.Amount), err)
	}
	return amount, nil
}
