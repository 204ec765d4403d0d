package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costscope/internal/store"
)

const testAccount = "123456789012"

// errStore fails every operation, for exercising the 500 paths
type errStore struct{}

func (errStore) PutCostRecords(context.Context, []store.CostRecord) error { return fmt.Errorf("down") }
func (errStore) QueryCostRecords(context.Context, string, string, string) ([]store.CostRecord, error) {
	return nil, fmt.Errorf("down")
}
func (errStore) PutAlerts(context.Context, []store.BudgetAlert) error { return fmt.Errorf("down") }
func (errStore) RecentAlerts(context.Context, string, int) ([]store.BudgetAlert, error) {
	return nil, fmt.Errorf("down")
}
func (errStore) PutRecommendations(context.Context, []store.Recommendation) error {
	return fmt.Errorf("down")
}
func (errStore) RecentRecommendations(context.Context, string, int) ([]store.Recommendation, error) {
	return nil, fmt.Errorf("down")
}

func doGet(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := make(map[string]interface{})
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func recentDate(daysAgo int) string {
	return time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func TestHealth(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	w, body := doGet(t, server.Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestSummaryEmptyStore(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	// An empty store is zero results, not an error
	w, body := doGet(t, server.Handler(), "/cost/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["total_cost"])
	assert.Equal(t, 0.0, body["daily_average"])
	assert.Equal(t, 30.0, body["period_days"])
}

func TestSummaryWithData(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutCostRecords(context.Background(), []store.CostRecord{
		{AccountID: testAccount, Date: recentDate(2), Service: "Amazon EC2", Cost: 30},
		{AccountID: testAccount, Date: recentDate(1), Service: "Amazon S3", Cost: 10},
		{AccountID: testAccount, Date: recentDate(1), Service: store.TotalService, Cost: 10},
	}))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/cost/summary?days=10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 40.0, body["total_cost"])
	assert.Equal(t, 4.0, body["daily_average"])

	breakdown, ok := body["service_breakdown"].([]interface{})
	require.True(t, ok)
	require.Len(t, breakdown, 2)

	var sum float64
	for _, entry := range breakdown {
		sum += entry.(map[string]interface{})["percentage"].(float64)
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestDaysParamValidation(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	for _, path := range []string{
		"/cost/summary?days=0",
		"/cost/summary?days=366",
		"/cost/summary?days=abc",
		"/cost/trends?days=-5",
		"/cost/services?days=1.5",
	} {
		w, body := doGet(t, server.Handler(), path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestTrendsEmptyStore(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	w, body := doGet(t, server.Handler(), "/cost/trends?days=7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "insufficient_data", body["trend_direction"])
	assert.Equal(t, 7.0, body["period_days"])
}

func TestServicesEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutCostRecords(context.Background(), []store.CostRecord{
		{AccountID: testAccount, Date: recentDate(1), Service: "Amazon EC2", Cost: 30},
	}))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/cost/services")
	assert.Equal(t, http.StatusOK, w.Code)

	services, ok := body["services"].([]interface{})
	require.True(t, ok)
	require.Len(t, services, 1)
	assert.Equal(t, "Amazon EC2", services[0].(map[string]interface{})["service"])
}

func TestAlertsEmptyStore(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	w, body := doGet(t, server.Handler(), "/budget/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["count"])
	assert.NotNil(t, body["alerts"])
}

func TestAlertsLimit(t *testing.T) {
	st := store.NewMemoryStore()
	var alerts []store.BudgetAlert
	for i := 0; i < 5; i++ {
		alerts = append(alerts, store.BudgetAlert{
			AccountID: testAccount,
			Timestamp: fmt.Sprintf("2026-08-0%dT00:00:00Z", i+1),
			AlertType: store.AlertTypeBudgetExceeded,
		})
	}
	require.NoError(t, st.PutAlerts(context.Background(), alerts))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/budget/?limit=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["count"])

	w, _ = doGet(t, server.Handler(), "/budget/?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertSummary(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutAlerts(context.Background(), []store.BudgetAlert{
		{AccountID: testAccount, Timestamp: "2026-08-01T00:00:00Z", AlertType: store.AlertTypeBudgetExceeded, Service: store.TotalService},
		{AccountID: testAccount, Timestamp: "2026-08-02T00:00:00Z", AlertType: store.AlertTypeServiceBudgetExceeded, Service: "Amazon EC2"},
		{AccountID: testAccount, Timestamp: "2026-08-03T00:00:00Z", AlertType: store.AlertTypeServiceBudgetExceeded, Service: "Amazon EC2"},
	}))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/budget/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, body["total_alerts"])

	byType := body["alerts_by_type"].(map[string]interface{})
	assert.Equal(t, 2.0, byType[store.AlertTypeServiceBudgetExceeded])
}

func TestRecommendationsFilters(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutRecommendations(context.Background(), []store.Recommendation{
		{AccountID: testAccount, Timestamp: "2026-08-01T00:00:00Z", RecommendationID: "a", Service: "Amazon EC2", Priority: store.PriorityHigh},
		{AccountID: testAccount, Timestamp: "2026-08-02T00:00:00Z", RecommendationID: "b", Service: "Amazon S3", Priority: store.PriorityMedium},
		{AccountID: testAccount, Timestamp: "2026-08-03T00:00:00Z", RecommendationID: "c", Service: "Amazon EC2", Priority: store.PriorityMedium},
	}))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/optimization/?service=Amazon+EC2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["count"])

	w, body = doGet(t, server.Handler(), "/optimization/?service=Amazon+EC2&priority=medium")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])

	recs := body["recommendations"].([]interface{})
	assert.Equal(t, "c", recs[0].(map[string]interface{})["recommendation_id"])
}

func TestRecommendationSummary(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutRecommendations(context.Background(), []store.Recommendation{
		{AccountID: testAccount, Timestamp: "2026-08-01T00:00:00Z", RecommendationID: "a", Priority: store.PriorityHigh, Category: "RIGHT_SIZING", PotentialSavings: 7.5},
		{AccountID: testAccount, Timestamp: "2026-08-02T00:00:00Z", RecommendationID: "b", Priority: store.PriorityHigh, Category: "LIFECYCLE_POLICIES", PotentialSavings: 2.5},
	}))
	server := NewServer(st, testAccount)

	w, body := doGet(t, server.Handler(), "/optimization/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["total_recommendations"])
	assert.Equal(t, 10.0, body["total_potential_savings"])

	byPriority := body["recommendations_by_priority"].(map[string]interface{})
	assert.Equal(t, 2.0, byPriority[store.PriorityHigh])
}

func TestStoreFailuresReturn500(t *testing.T) {
	server := NewServer(errStore{}, testAccount)

	for _, path := range []string{
		"/cost/summary",
		"/cost/trends",
		"/cost/services",
		"/budget/",
		"/budget/summary",
		"/optimization/",
		"/optimization/summary",
	} {
		w, body := doGet(t, server.Handler(), path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Equal(t, "store unavailable", body["error"], path)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := NewServer(store.NewMemoryStore(), testAccount)

	req := httptest.NewRequest(http.MethodOptions, "/cost/summary", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
