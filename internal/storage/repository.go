package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	pq "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"

	"github.com/guttosm/coinbench/internal/domain/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded goose migrations to db.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// CandlesRepository defines contract for DB operations.
type CandlesRepository interface {
	InsertCandlesBatch(ctx context.Context, pair string, g models.Granularity, candles []models.Candle) error
	ReplaceCandlesBatch(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange, candles []models.Candle) error
	CountCandles(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange) (int, error)
	DeleteCandles(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange) error
}

type candlesRepository struct {
	db *sql.DB
}

// NewCandlesRepository returns a CandlesRepository backed by db.
func NewCandlesRepository(db *sql.DB) CandlesRepository {
	return &candlesRepository{db: db}
}

// InsertCandlesBatch copies candles for one pair/granularity in a single transaction.
func (r *candlesRepository) InsertCandlesBatch(ctx context.Context, pair string, g models.Granularity, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return copyCandles(ctx, tx, pair, g, candles)
	})
}

// ReplaceCandlesBatch deletes the rows for pair/granularity inside rng and
// copies candles in their place. Both happen in one transaction, so a failed
// copy leaves the previous rows untouched.
func (r *candlesRepository) ReplaceCandlesBatch(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange, candles []models.Candle) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM candles WHERE `+rangeFilter,
			pair, g.Seconds(), rng.Start, rng.End); err != nil {
			return err
		}
		if len(candles) == 0 {
			return nil
		}
		return copyCandles(ctx, tx, pair, g, candles)
	})
}

// inTx runs fn in a transaction tuned for bulk load, rolling back on error.
func (r *candlesRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func copyCandles(ctx context.Context, tx *sql.Tx, pair string, g models.Granularity, candles []models.Candle) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"candles",
		"pair",
		"granularity",
		"bucket_start",
		"low",
		"high",
		"open",
		"close",
		"volume",
	))
	if err != nil {
		return err
	}

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			pair,
			g.Seconds(),
			c.Time,
			c.Low,
			c.High,
			c.Open,
			c.Close,
			c.Volume,
		); err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	return stmt.Close()
}

const rangeFilter = `pair = $1 AND granularity = $2 AND bucket_start >= $3::timestamptz AND bucket_start <= $4::timestamptz`

// CountCandles returns how many rows exist for pair/granularity inside rng.
func (r *candlesRepository) CountCandles(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candles WHERE `+rangeFilter,
		pair, g.Seconds(), rng.Start, rng.End).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteCandles removes rows for pair/granularity inside rng.
func (r *candlesRepository) DeleteCandles(ctx context.Context, pair string, g models.Granularity, rng models.HistoryRange) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM candles WHERE `+rangeFilter,
		pair, g.Seconds(), rng.Start, rng.End)
	return err
}
