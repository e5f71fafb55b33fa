package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
)

// basePairs is repeated n times to build the benchmark input.
var basePairs = []string{"btc-usdt", "eth-usdt", "ltc-usdt", "xrp-usdt"}

// statsPair is the pair whose stats are displayed before timing starts.
const statsPair = "btc-usdt"

const previewPairs = 5

// Resources returns the base pair list repeated n times.
func Resources(n int) []string {
	if n <= 0 {
		return []string{}
	}
	out := make([]string, 0, n*len(basePairs))
	for i := 0; i < n; i++ {
		out = append(out, basePairs...)
	}
	return out
}

// MarketClient is the subset of *coinbase.Client the benchmark drives.
type MarketClient interface {
	ListPairs(ctx context.Context, pool *coinbase.Pool) (json.RawMessage, error)
	GetStats(ctx context.Context, pool *coinbase.Pool, pair string) (json.RawMessage, error)
	GetHistory(ctx context.Context, pool *coinbase.Pool, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error)
}

// BatchFetcher is implemented by *batch.Driver.
type BatchFetcher interface {
	FetchHistory(ctx context.Context, resources []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error)
}

// Report holds wall-clock durations of both code paths.
type Report struct {
	Requests   int
	Sequential time.Duration
	Concurrent time.Duration
}

// Runner times sequential fetching against the batch driver.
type Runner struct {
	client      MarketClient
	driver      BatchFetcher
	rng         models.HistoryRange
	granularity models.Granularity
	out         io.Writer
	log         zerolog.Logger
	now         func() time.Time
}

// NewRunner builds a Runner that prints to out and times with the wall clock.
func NewRunner(client MarketClient, driver BatchFetcher, rng models.HistoryRange, g models.Granularity, out io.Writer, log zerolog.Logger) *Runner {
	return &Runner{
		client:      client,
		driver:      driver,
		rng:         rng,
		granularity: g,
		out:         out,
		log:         log,
		now:         time.Now,
	}
}

// Run executes the benchmark for n repetitions of the base pair list.
//
// Steps:
//  1. ListPairs and GetStats once each, printed for display.
//  2. GetHistory for every resource, one at a time, each call with its own pool.
//  3. The batch driver over the same resources.
//
// The first error from any step aborts the run.
func (r *Runner) Run(ctx context.Context, n int) (Report, error) {
	resources := Resources(n)
	report := Report{Requests: len(resources)}

	pairs, err := r.client.ListPairs(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("list pairs: %w", err)
	}
	_, _ = fmt.Fprintln(r.out, preview(pairs, previewPairs))

	stats, err := r.client.GetStats(ctx, nil, statsPair)
	if err != nil {
		return report, fmt.Errorf("get stats %s: %w", statsPair, err)
	}
	_, _ = fmt.Fprintln(r.out, string(stats))

	r.log.Info().Int("requests", len(resources)).Msg("sequential start")
	seqStart := r.now()
	for _, pair := range resources {
		if _, err := r.client.GetHistory(ctx, nil, pair, r.rng, r.granularity); err != nil {
			return report, fmt.Errorf("sequential history %s: %w", pair, err)
		}
	}
	report.Sequential = r.now().Sub(seqStart)
	_, _ = fmt.Fprintf(r.out, "Sequential time: %s\n", report.Sequential)

	r.log.Info().Int("requests", len(resources)).Msg("concurrent start")
	conStart := r.now()
	if _, err := r.driver.FetchHistory(ctx, resources, r.rng, r.granularity); err != nil {
		return report, fmt.Errorf("concurrent history: %w", err)
	}
	report.Concurrent = r.now().Sub(conStart)
	_, _ = fmt.Fprintf(r.out, "Concurrent time: %s\n", report.Concurrent)

	r.log.Info().
		Int("requests", report.Requests).
		Dur("sequential", report.Sequential).
		Dur("concurrent", report.Concurrent).
		Msg("benchmark done")
	return report, nil
}

// preview renders the first n elements of a JSON list, or the raw body when
// it is not a list.
func preview(raw json.RawMessage, n int) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return string(raw)
	}
	if len(items) > n {
		items = items[:n]
	}
	b, err := json.Marshal(items)
	if err != nil {
		return string(raw)
	}
	return string(b)
}
