package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"costscope/internal/analysis"
	"costscope/internal/logging"
	"costscope/internal/store"
	"costscope/internal/version"
)

const (
	dateLayout   = "2006-01-02"
	defaultDays  = 30
	maxDays      = 365
	defaultLimit = 50
	maxLimit     = 1000
)

// parseDays reads the days query parameter with bounds checking
func parseDays(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("days", strconv.Itoa(defaultDays))
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "days must be an integer between 1 and 365",
		})
		return 0, false
	}
	return days, true
}

// parseLimit reads the limit query parameter with bounds checking
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "limit must be an integer between 1 and 1000",
		})
		return 0, false
	}
	return limit, true
}

// windowRecords fetches cost rows for the trailing window. A store failure
// is surfaced as a 500; stale data is never served as fresh.
func (s *Server) windowRecords(c *gin.Context, days int) ([]store.CostRecord, bool) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	records, err := s.store.QueryCostRecords(c.Request.Context(), s.accountID,
		start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		logging.Error("Failed to query cost records", err, map[string]interface{}{
			"account_id": s.accountID,
			"days":       days,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return nil, false
	}
	return records, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   version.ShortString(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	records, ok := s.windowRecords(c, days)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysis.Summarize(records, days))
}

func (s *Server) handleTrends(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	records, ok := s.windowRecords(c, days)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysis.DailyTrends(records, days))
}

func (s *Server) handleServices(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	records, ok := s.windowRecords(c, days)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"services":    analysis.ServiceBreakdown(records),
		"period_days": days,
	})
}

func (s *Server) handleAlerts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	alerts, err := s.store.RecentAlerts(c.Request.Context(), s.accountID, limit)
	if err != nil {
		logging.Error("Failed to query alerts", err, map[string]interface{}{
			"account_id": s.accountID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}
	if alerts == nil {
		alerts = []store.BudgetAlert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleAlertSummary(c *gin.Context) {
	alerts, err := s.store.RecentAlerts(c.Request.Context(), s.accountID, 0)
	if err != nil {
		logging.Error("Failed to query alerts", err, map[string]interface{}{
			"account_id": s.accountID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}

	byType := make(map[string]int)
	byService := make(map[string]int)
	for _, alert := range alerts {
		byType[alert.AlertType]++
		byService[alert.Service]++
	}

	c.JSON(http.StatusOK, gin.H{
		"total_alerts":      len(alerts),
		"alerts_by_type":    byType,
		"alerts_by_service": byService,
	})
}

func (s *Server) handleRecommendations(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	service := c.Query("service")
	priority := c.Query("priority")

	// Fetch unfiltered, then filter, so limit applies to the filtered set
	recs, err := s.store.RecentRecommendations(c.Request.Context(), s.accountID, 0)
	if err != nil {
		logging.Error("Failed to query recommendations", err, map[string]interface{}{
			"account_id": s.accountID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}

	filtered := make([]store.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if service != "" && rec.Service != service {
			continue
		}
		if priority != "" && rec.Priority != priority {
			continue
		}
		filtered = append(filtered, rec)
		if len(filtered) == limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": filtered,
		"count":           len(filtered),
	})
}

func (s *Server) handleRecommendationSummary(c *gin.Context) {
	recs, err := s.store.RecentRecommendations(c.Request.Context(), s.accountID, 0)
	if err != nil {
		logging.Error("Failed to query recommendations", err, map[string]interface{}{
			"account_id": s.accountID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}

	byPriority := make(map[string]int)
	byService := make(map[string]int)
	byCategory := make(map[string]int)
	var totalSavings float64
	for _, rec := range recs {
		byPriority[rec.Priority]++
		byService[rec.Service]++
		byCategory[rec.Category]++
		totalSavings += rec.PotentialSavings
	}

	c.JSON(http.StatusOK, gin.H{
		"total_recommendations":       len(recs),
		"total_potential_savings":     totalSavings,
		"recommendations_by_priority": byPriority,
		"recommendations_by_service":  byService,
		"recommendations_by_category": byCategory,
	})
}
