package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used for local demo mode and tests.
// It mirrors the DynamoDB key semantics: cost rows upsert by
// (account, date, service), alerts and recommendations append.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]CostRecord // key: accountID + "#" + date + "#" + service
	alerts  []BudgetAlert
	recs    []Recommendation
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]CostRecord),
	}
}

// PutCostRecords implements Store
func (s *MemoryStore) PutCostRecords(_ context.Context, records []CostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		key := record.AccountID + "#" + record.Date + "#" + record.Service
		s.records[key] = record
	}
	return nil
}

// QueryCostRecords implements Store
func (s *MemoryStore) QueryCostRecords(_ context.Context, accountID, startDate, endDate string) ([]CostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []CostRecord
	for _, record := range s.records {
		if record.AccountID != accountID {
			continue
		}
		if record.Date < startDate || record.Date > endDate {
			continue
		}
		result = append(result, record)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Service < result[j].Service
	})
	return result, nil
}

// PutAlerts implements Store
func (s *MemoryStore) PutAlerts(_ context.Context, alerts []BudgetAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alerts...)
	return nil
}

// RecentAlerts implements Store
func (s *MemoryStore) RecentAlerts(_ context.Context, accountID string, limit int) ([]BudgetAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []BudgetAlert
	for _, alert := range s.alerts {
		if alert.AccountID == accountID {
			result = append(result, alert)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PutRecommendations implements Store
func (s *MemoryStore) PutRecommendations(_ context.Context, recs []Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs...)
	return nil
}

// RecentRecommendations implements Store
func (s *MemoryStore) RecentRecommendations(_ context.Context, accountID string, limit int) ([]Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Recommendation
	for _, rec := range s.recs {
		if rec.AccountID == accountID {
			result = append(result, rec)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
