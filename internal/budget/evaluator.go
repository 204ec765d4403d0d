package budget

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"costscope/internal/config"
	"costscope/internal/logging"
	"costscope/internal/store"
)

const dateLayout = "2006-01-02"

// Notifier delivers alerts to an external channel
type Notifier interface {
	Publish(ctx context.Context, alert store.BudgetAlert) error
}

// Evaluator compares aggregated spend over a lookback window against
// configured thresholds and appends one alert per exceeded dimension per
// run. Alerts are a time series; no dedup against prior runs.
type Evaluator struct {
	store    store.Store
	budgets  config.BudgetConfig
	notifier Notifier // nil disables notification
	now      func() time.Time
}

// New creates an Evaluator. notifier may be nil.
func New(st store.Store, budgets config.BudgetConfig, notifier Notifier) *Evaluator {
	return &Evaluator{
		store:    st,
		budgets:  budgets,
		notifier: notifier,
		now:      time.Now,
	}
}

// Evaluate sums stored costs over the trailing window and emits alerts for
// every dimension whose spend exceeds its threshold. A dimension without a
// configured threshold is not evaluated. Returns the emitted alerts.
func (e *Evaluator) Evaluate(ctx context.Context, accountID string, days int) ([]store.BudgetAlert, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	end := e.now().UTC()
	start := end.AddDate(0, 0, -days)
	logging.StageStart("evaluate", accountID, map[string]interface{}{
		"start": start.Format(dateLayout),
		"end":   end.Format(dateLayout),
	})

	records, err := e.store.QueryCostRecords(ctx, accountID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		logging.StageError("evaluate", accountID, err)
		return nil, fmt.Errorf("failed to read cost records: %w", err)
	}

	perService, total := aggregate(records)
	timestamp := e.now().UTC().Format(time.RFC3339)

	// Budget keys come from config, billing service names from the store;
	// match them case-insensitively and keep the billing spelling for output
	spendByKey := make(map[string]serviceSpend, len(perService))
	for name, cost := range perService {
		spendByKey[strings.ToLower(name)] = serviceSpend{name: name, cost: cost}
	}

	var alerts []store.BudgetAlert
	if e.budgets.Total > 0 && total > e.budgets.Total {
		alerts = append(alerts, store.BudgetAlert{
			AccountID:   accountID,
			Timestamp:   timestamp,
			AlertType:   store.AlertTypeBudgetExceeded,
			Service:     store.TotalService,
			CurrentCost: total,
			BudgetLimit: e.budgets.Total,
			Message:     fmt.Sprintf("Total budget exceeded: $%.2f > $%.2f", total, e.budgets.Total),
		})
	}

	// Stable service order so repeated runs emit alerts in the same order
	services := make([]string, 0, len(e.budgets.Services))
	for service := range e.budgets.Services {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		limit := e.budgets.Services[service]
		spend, ok := spendByKey[strings.ToLower(service)]
		if !ok {
			spend = serviceSpend{name: service}
		}
		if limit > 0 && spend.cost > limit {
			alerts = append(alerts, store.BudgetAlert{
				AccountID:   accountID,
				Timestamp:   timestamp,
				AlertType:   store.AlertTypeServiceBudgetExceeded,
				Service:     spend.name,
				CurrentCost: spend.cost,
				BudgetLimit: limit,
				Message:     fmt.Sprintf("%s budget exceeded: $%.2f > $%.2f", spend.name, spend.cost, limit),
			})
		}
	}

	if len(alerts) > 0 {
		if err := e.store.PutAlerts(ctx, alerts); err != nil {
			logging.StageError("evaluate", accountID, err)
			return nil, fmt.Errorf("failed to store alerts: %w", err)
		}

		// Notification failures must not lose the stored alert
		if e.notifier != nil {
			for _, alert := range alerts {
				if err := e.notifier.Publish(ctx, alert); err != nil {
					logging.Error("Failed to publish alert notification", err, map[string]interface{}{
						"account_id": accountID,
						"service":    alert.Service,
					})
				}
			}
		}
	}

	logging.StageComplete("evaluate", accountID, len(alerts))
	return alerts, nil
}

// serviceSpend pairs the billing-reported service name with its window cost
type serviceSpend struct {
	name string
	cost float64
}

// aggregate sums cost rows per service, excluding the TOTAL pseudo rows so
// the overall total and the per-service sums stay consistent
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
