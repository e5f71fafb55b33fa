package service

import (
	"context"

	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
)

// MarketService defines the market-data operations exposed over HTTP.
type MarketService interface {
	Pairs(ctx context.Context) (json.RawMessage, error)
	Stats(ctx context.Context, pair string) (json.RawMessage, error)
	History(ctx context.Context, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error)
	BatchHistory(ctx context.Context, pairs []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
}

// Upstream is the subset of *coinbase.Client used by the service.
type Upstream interface {
	ListPairs(ctx context.Context, pool *coinbase.Pool) (json.RawMessage, error)
	GetStats(ctx context.Context, pool *coinbase.Pool, pair string) (json.RawMessage, error)
	GetHistory(ctx context.Context, pool *coinbase.Pool, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error)
	Ping(ctx context.Context, pool *coinbase.Pool) error
}

// Batcher is implemented by *batch.Driver.
type Batcher interface {
	FetchHistory(ctx context.Context, resources []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error)
}

type marketService struct {
	upstream Upstream
	batcher  Batcher
	pool     *coinbase.Pool
}

// NewMarketService wires the client and the batch driver.
//
// Single-pair calls share pool, which is owned by the caller (the app
// cleanup closes it); a nil pool makes every call use a scoped pool.
func NewMarketService(upstream Upstream, batcher Batcher, pool *coinbase.Pool) MarketService {
	return &marketService{upstream: upstream, batcher: batcher, pool: pool}
}

func (s *marketService) Pairs(ctx context.Context) (json.RawMessage, error) {
	return s.upstream.ListPairs(ctx, s.pool)
}

func (s *marketService) Stats(ctx context.Context, pair string) (json.RawMessage, error) {
	return s.upstream.GetStats(ctx, s.pool, pair)
}

func (s *marketService) History(ctx context.Context, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error) {
	return s.upstream.GetHistory(ctx, s.pool, pair, rng, g)
}

func (s *marketService) BatchHistory(ctx context.Context, pairs []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error) {
	return s.batcher.FetchHistory(ctx, pairs, rng, g)
}

func (s *marketService) Ping(ctx context.Context) error {
	return s.upstream.Ping(ctx, s.pool)
}
