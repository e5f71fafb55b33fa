package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
)

// DefaultGroupSize is the number of requests issued together per group.
const DefaultGroupSize = 10

// HistoryFetcher is the subset of *coinbase.Client the driver needs.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, pool *coinbase.Pool, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error)
}

// Driver fetches candle history for many pairs by overlapping requests in
// fixed-size groups over a single shared pool.
type Driver struct {
	fetcher   HistoryFetcher
	log       zerolog.Logger
	groupSize int
	newPool   func() *coinbase.Pool
}

// Option customizes a Driver.
type Option func(*Driver)

// WithGroupSize overrides DefaultGroupSize. Values below 1 are ignored.
func WithGroupSize(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.groupSize = n
		}
	}
}

// WithPoolFactory replaces coinbase.NewPool as the source of the shared pool.
func WithPoolFactory(f func() *coinbase.Pool) Option {
	return func(d *Driver) {
		if f != nil {
			d.newPool = f
		}
	}
}

// NewDriver builds a Driver over fetcher using DefaultGroupSize and coinbase.NewPool unless overridden.
func NewDriver(fetcher HistoryFetcher, log zerolog.Logger, opts ...Option) *Driver {
	d := &Driver{
		fetcher:   fetcher,
		log:       log,
		groupSize: DefaultGroupSize,
		newPool:   coinbase.NewPool,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// GroupSize returns the effective group size.
func (d *Driver) GroupSize() int { return d.groupSize }

// FetchHistory returns one result per resource, results[i] belonging to resources[i].
//
// Behavior:
//   - Splits resources into consecutive groups of at most GroupSize().
//   - Acquires one pool before the first group and releases it after the last.
//   - Starts every request of a group together and waits for all of them,
//     successful or not, before starting the next group.
//   - Fails the whole call if any request fails; no partial results are returned.
//
// Repeated identifiers are fetched once per occurrence. In-flight requests are
// not cancelled when a sibling fails.
func (d *Driver) FetchHistory(ctx context.Context, resources []string, rng models.HistoryRange, g models.Granularity) ([]json.RawMessage, error) {
	groups := Partition(resources, d.groupSize)
	if len(groups) == 0 {
		return []json.RawMessage{}, nil
	}

	pool := d.newPool()
	defer pool.Close()

	start := time.Now()
	d.log.Info().Int("resources", len(resources)).Int("groups", len(groups)).Int("group_size", d.groupSize).Msg("batch start")

	results := make([]json.RawMessage, len(resources))
	offset := 0
	for gi, group := range groups {
		var eg errgroup.Group
		for i, pair := range group {
			idx := offset + i
			eg.Go(func() error {
				data, err := d.fetcher.GetHistory(ctx, pool, pair, rng, g)
				if err != nil {
					return fmt.Errorf("pair %s: %w", pair, err)
				}
				results[idx] = data
				return nil
			})
		}
		// Wait blocks until every request in the group has returned.
		if err := eg.Wait(); err != nil {
			d.log.Error().Int("group", gi+1).Int("total", len(groups)).Err(err).Msg("group failed")
			return nil, err
		}
		d.log.Debug().Int("group", gi+1).Int("total", len(groups)).Int("size", len(group)).Msg("group done")
		offset += len(group)
	}

	d.log.Info().Int("resources", len(resources)).Dur("elapsed", time.Since(start)).Msg("batch done")
	return results, nil
}
