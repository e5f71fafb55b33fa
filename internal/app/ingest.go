package app

import (
	"context"
	"fmt"

	"github.com/guttosm/coinbench/config"
	"github.com/guttosm/coinbench/internal/ingestion"
	"github.com/guttosm/coinbench/internal/logger"
	"github.com/guttosm/coinbench/internal/storage"
)

// RunIngest connects to PostgreSQL, applies migrations and stores the
// configured history window for pairs.
//
// Parameters:
//   - parallel: insert workers (0 = auto).
//   - force: delete and re-ingest pairs that already have rows in the window.
func RunIngest(ctx context.Context, cfg config.Config, pairs []string, parallel int, force bool) (ingestion.Summary, error) {
	up, err := BuildUpstream(cfg)
	if err != nil {
		return ingestion.Summary{}, err
	}
	rng, g, err := HistorySettings(cfg)
	if err != nil {
		return ingestion.Summary{}, err
	}

	db, err := postgresOpener(cfg)
	if err != nil {
		return ingestion.Summary{}, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrate(db); err != nil {
		return ingestion.Summary{}, fmt.Errorf("failed to migrate: %w", err)
	}

	repo := storage.NewCandlesRepository(db)
	return ingestion.ProcessPairs(ctx, logger.Named("ingestion"), up.Driver, repo, pairs, rng, g, parallel, force)
}

// migrate is an indirection for unit testing; defaults to storage.Migrate.
var migrate = storage.Migrate
