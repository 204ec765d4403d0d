package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"costscope/internal/logging"
	"costscope/internal/store"
)

const dateLayout = "2006-01-02"

// Generator applies the static heuristic rules to aggregated costs over a
// lookback window and appends the resulting recommendations. Output is
// derived data: regenerating is always safe.
type Generator struct {
	store store.Store
	rules []Rule
	now   func() time.Time
}

// New creates a Generator with the given rule set; nil rules means
// DefaultRules.
func New(st store.Store, rules []Rule) *Generator {
	if rules == nil {
		rules = DefaultRules
	}
	return &Generator{
		store: st,
		rules: rules,
		now:   time.Now,
	}
}

// Generate evaluates every rule against the trailing window and stores the
// recommendations that fired. Returns them in rule order.
func (g *Generator) Generate(ctx context.Context, accountID string, days int) ([]store.Recommendation, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	end := g.now().UTC()
	start := end.AddDate(0, 0, -days)
	logging.StageStart("recommend", accountID, map[string]interface{}{
		"start": start.Format(dateLayout),
		"end":   end.Format(dateLayout),
	})

	records, err := g.store.QueryCostRecords(ctx, accountID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		logging.StageError("recommend", accountID, err)
		return nil, fmt.Errorf("failed to read cost records: %w", err)
	}

	perService, total := aggregate(records)
	timestamp := g.now().UTC().Format(time.RFC3339)

	var recs []store.Recommendation
	for _, rule := range g.rules {
		cost := total
		if rule.Service != "" {
			cost = perService[rule.Service]
		}
		if cost <= rule.Threshold {
			continue
		}

		service := rule.Service
		if service == "" {
			service = "GENERAL"
		}
		recs = append(recs, store.Recommendation{
			AccountID:        accountID,
			Timestamp:        timestamp,
			RecommendationID: uuid.NewString(),
			Service:          service,
			Priority:         rule.Priority,
			Category:         rule.Category,
			Title:            rule.Title,
			Description:      rule.Describe(cost),
			PotentialSavings: roundCents(cost * rule.SavingsRate),
			Action:           rule.Action,
			Impact:           rule.Impact,
		})
	}

	if len(recs) > 0 {
		if err := g.store.PutRecommendations(ctx, recs); err != nil {
			logging.StageError("recommend", accountID, err)
			return nil, fmt.Errorf("failed to store recommendations: %w", err)
		}
	}

	logging.StageComplete("recommend", accountID, len(recs))
	return recs, nil
}

// aggregate sums cost rows per service, excluding TOTAL pseudo rows
func aggregate(records []store.CostRecord) (map[string]float64, float64) {
	perService := make(map[string]float64)
	var total float64
	for _, record := range records {
		if record.Service == store.TotalService {
			continue
		}
		perService[record.Service] += record.Cost
		total += record.Cost
	}
	return perService, total
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
