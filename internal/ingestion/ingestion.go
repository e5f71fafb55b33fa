package ingestion

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/coinbench/internal/domain/models"
	"github.com/guttosm/coinbench/internal/storage"
)

const maxParallel = 8

// HistoryBatcher is implemented by *batch.Driver.
type HistoryBatcher interface {
	FetchHistory(ctx context.Context, resources []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error)
}

// Summary reports what ProcessPairs did per pair.
type Summary struct {
	Inserted map[string]int
	Skipped  []string
}

// ProcessPairs fetches candles for pairs through the batch driver and
// persists them.
//
// Behavior:
//   - Normalizes pairs to lower case and drops blanks and duplicates.
//   - Skips pairs that already have rows in rng, unless force is set, in
//     which case their rows are replaced.
//   - Fetches all remaining pairs in one batch call; any fetch failure aborts
//     before anything is deleted or written.
//   - A forced pair's old rows are deleted in the same transaction that
//     inserts the new ones.
//   - Decodes and inserts each pair with up to parallel workers
//     (0 = min(NumCPU, 8)); the first failure cancels the rest.
func ProcessPairs(ctx context.Context, log zerolog.Logger, batcher HistoryBatcher, repo storage.CandlesRepository, pairs []string, rng models.HistoryRange, g models.Granularity, parallel int, force bool) (Summary, error) {
	summary := Summary{Inserted: map[string]int{}}

	pairs = normalize(pairs)
	if len(pairs) == 0 {
		return summary, fmt.Errorf("no pairs to ingest")
	}

	var todo []string
	replace := make(map[string]bool)
	for _, p := range pairs {
		n, err := repo.CountCandles(ctx, p, g, rng)
		if err != nil {
			return summary, fmt.Errorf("pair %s: count existing: %w", p, err)
		}
		if n > 0 && !force {
			log.Info().Str("pair", p).Int("rows", n).Bool("skipped", true).Msg("already ingested")
			summary.Skipped = append(summary.Skipped, p)
			continue
		}
		replace[p] = n > 0
		todo = append(todo, p)
	}
	if len(todo) == 0 {
		log.Info().Int("pairs", len(pairs)).Msg("nothing to ingest")
		return summary, nil
	}

	workers := workerCount(parallel)
	log.Info().Int("pairs", len(todo)).Int("max_parallel", workers).Str("granularity", g.String()).Msg("ingestion start")

	bodies, err := batcher.FetchHistory(ctx, todo, rng, g)
	if err != nil {
		return summary, fmt.Errorf("fetch history: %w", err)
	}

	counts := make([]int, len(todo))

	// errgroup will cancel siblings on first error.
	eg, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	for i, pair := range todo {
		idx := i
		p := pair
		sem <- struct{}{}

		eg.Go(func() error {
			defer func() { <-sem }()
			start := time.Now()

			candles, err := models.ParseCandles(bodies[idx])
			if err != nil {
				log.Error().Str("pair", p).Err(err).Msg("decode candles failed")
				return fmt.Errorf("pair %s: %w", p, err)
			}
			store := repo.InsertCandlesBatch
			if replace[p] {
				store = func(ctx context.Context, pair string, g models.Granularity, c []models.Candle) error {
					return repo.ReplaceCandlesBatch(ctx, pair, g, rng, c)
				}
			}
			if err := store(gctx, p, g, candles); err != nil {
				log.Error().Str("pair", p).Err(err).Msg("insert candles failed")
				return fmt.Errorf("pair %s: insert: %w", p, err)
			}
			counts[idx] = len(candles)
			log.Info().Int("idx", idx+1).Int("total", len(todo)).Str("pair", p).Int("rows", len(candles)).Dur("elapsed", time.Since(start)).Bool("force", force).Msg("pair done")
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return summary, err
	}

	for i, p := range todo {
		summary.Inserted[p] = counts[i]
	}
	return summary, nil
}

func normalize(pairs []string) []string {
	seen := make(map[string]bool, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// workerCount defaults to min(NumCPU, maxParallel), or clamps parallel to 1..maxParallel.
func workerCount(parallel int) int {
	if parallel > 0 {
		if parallel > maxParallel {
			return maxParallel
		}
		return parallel
	}
	if c := runtime.NumCPU(); c < maxParallel {
		return c
	}
	return maxParallel
}
