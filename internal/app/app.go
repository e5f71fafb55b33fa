package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/guttosm/coinbench/config"
	"github.com/guttosm/coinbench/internal/api"
	"github.com/guttosm/coinbench/internal/batch"
	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
	"github.com/guttosm/coinbench/internal/logger"
	"github.com/guttosm/coinbench/internal/middleware"
	"github.com/guttosm/coinbench/internal/service"
)

// Per-IP throttling for API mode. A history request may cost many upstream
// calls, so the burst is kept modest.
const (
	apiRate       = rate.Limit(2)
	apiBurst      = 30
	limiterTTL    = 10 * time.Minute
	janitorPeriod = time.Minute
)

// Upstream groups the exchange client and the batch driver built from config.
type Upstream struct {
	Client *coinbase.Client
	Driver *batch.Driver
}

// BuildUpstream creates the Coinbase client and the batch driver.
//
// Returns an error when the endpoint is not an absolute http(s) URL.
func BuildUpstream(cfg config.Config) (Upstream, error) {
	client, err := coinbase.NewClient(cfg.Coinbase.Endpoint, logger.Named("coinbase"))
	if err != nil {
		return Upstream{}, fmt.Errorf("failed to create coinbase client: %w", err)
	}
	driver := batch.NewDriver(client, logger.Named("batch"), batch.WithGroupSize(cfg.Coinbase.GroupSize))
	return Upstream{Client: client, Driver: driver}, nil
}

// HistorySettings resolves the configured history window and granularity.
func HistorySettings(cfg config.Config) (models.HistoryRange, models.Granularity, error) {
	g, err := models.ParseGranularity(cfg.Coinbase.Granularity)
	if err != nil {
		return models.HistoryRange{}, 0, fmt.Errorf("invalid HISTORY_GRANULARITY: %w", err)
	}
	rng := models.HistoryRange{Start: cfg.Coinbase.HistoryStart, End: cfg.Coinbase.HistoryEnd}
	return rng, g, nil
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the Coinbase client and the batch driver.
//   - Opens one connection pool shared by single-pair requests.
//   - Creates the service, handler and router layers.
//   - Registers health and readiness probes (readiness pings the exchange).
//   - Starts the rate limiter janitor.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function closing the pool and stopping the janitor.
//   - error: any initialization error that occurred.
func InitializeApp(cfg config.Config) (*gin.Engine, func(), error) {
	up, err := BuildUpstream(cfg)
	if err != nil {
		return nil, nil, err
	}
	rng, g, err := HistorySettings(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Shared by Pairs/Stats/History/Ping; the batch driver opens its own per call.
	pool := coinbase.NewPool()

	svc := service.NewMarketService(up.Client, up.Driver, pool)
	handler := api.NewHandler(svc, rng, g)

	limiter := middleware.NewIPLimiter(apiRate, apiBurst, limiterTTL)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	limiter.StartJanitor(janitorCtx, janitorPeriod)

	router := api.NewRouter(handler, limiter)

	healthHandler := api.NewHealthHandler(svc.Ping)
	healthHandler.Register(router)

	cleanup := func() {
		stopJanitor()
		pool.Close()
	}

	return router, cleanup, nil
}
