package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/coinbench/internal/middleware"
)

// requestTimeout bounds a whole request, including every upstream call of a
// batch.
const requestTimeout = 60 * time.Second

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling.
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
//
// Parameters:
//   - handler: the HTTP handler with business logic.
//   - limiter: per-IP limiter; nil uses the middleware defaults.
func NewRouter(handler *Handler, limiter *middleware.IPLimiter) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(limiter),
	)

	// ─── Timeout ──────────────────────────────────
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.GET("/pairs", handler.ListPairs)
		v1.GET("/pairs/:pair", handler.GetStats)
		v1.GET("/pairs/:pair/candles", handler.GetCandles)
		v1.POST("/history", handler.PostHistory)
	}

	return router
}
