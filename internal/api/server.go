package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"costscope/internal/logging"
	"costscope/internal/store"
)

// Server is the read-only HTTP surface over the store. It never writes:
// all mutation happens in the pipeline stages.
type Server struct {
	engine    *gin.Engine
	store     store.Store
	accountID string
}

// NewServer creates the API server for one account's data
func NewServer(st store.Store, accountID string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:    engine,
		store:     st,
		accountID: accountID,
	}

	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsMiddleware())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	cost := s.engine.Group("/cost")
	{
		cost.GET("/summary", s.handleSummary)
		cost.GET("/trends", s.handleTrends)
		cost.GET("/services", s.handleServices)
	}

	budget := s.engine.Group("/budget")
	{
		budget.GET("/", s.handleAlerts)
		budget.GET("/summary", s.handleAlertSummary)
	}

	optimization := s.engine.Group("/optimization")
	{
		optimization.GET("/", s.handleRecommendations)
		optimization.GET("/summary", s.handleRecommendationSummary)
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info("API server listening", map[string]interface{}{
		"addr": addr,
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request through the structured logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logging.Debug("HTTP request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
	}
}

// corsMiddleware allows the dashboard, which runs on another origin, to
// consume the API
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
