package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// requestTimeout bounds how long a request waits for a fee.
const requestTimeout = 10 * time.Second

// NewRouter configures the HTTP engine with every route.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(Timeout(requestTimeout))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/fees/stats", h.Stats)
		api.GET("/fees/:id", h.GetFee)
		api.POST("/fees/precalculate", h.Precalculate)
		api.DELETE("/fees/:id", h.InvalidateFee)
		api.DELETE("/fees", h.ClearFees)

		api.POST("/lifecycle/:state", h.Lifecycle)
		api.POST("/location", h.SetLocation)
	}

	return router
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
