// Package store executes compiled page queries against Postgres through a
// shared pgx pool. Count and fetch run inside one read-only repeatable-read
// transaction per request, so the reported total and the returned rows always
// describe the same snapshot even under concurrent writers.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbrzycki/datasetd/internal/query"
	"github.com/bbrzycki/datasetd/pkg/types"
)

// ErrUnavailable marks pool, connection, and statement failures. Callers map
// it to a server-side failure; retry policy belongs to the surrounding layer,
// not here.
var ErrUnavailable = errors.New("store unavailable")

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// New parses the connection URL, applies pool sizing, and pings the database
// with exponential backoff until it answers or ConnectTimeout elapses.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*Store, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout
	err = backoff.Retry(func() error {
		if err := pool.Ping(connectCtx); err != nil {
			log.Debug("store: ping failed, retrying", "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, connectCtx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("store: connected",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)
	return &Store{log: log, pool: pool}, nil
}

// QueryPage runs the count and fetch statements of a compiled query on one
// pooled connection inside a read-only repeatable-read transaction. The
// connection returns to the pool on every exit path via the deferred
// rollback.
func (s *Store) QueryPage(ctx context.Context, st *query.Statement) (int64, []types.Row, error) {
	start := time.Now()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("%w: begin transaction: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	err = tx.QueryRow(ctx, st.CountSQL, st.CountArgs...).Scan(&total)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		total = 0
	case err != nil:
		return 0, nil, fmt.Errorf("%w: count query: %v", ErrUnavailable, err)
	}
	if total < 0 {
		total = 0
	}

	rows, err := tx.Query(ctx, st.FetchSQL, st.FetchArgs...)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: fetch query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]types.Row, 0, 16)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return 0, nil, fmt.Errorf("%w: read row values: %v", ErrUnavailable, err)
		}
		fields := rows.FieldDescriptions()
		for i := range values {
			values[i] = normalizeValue(values[i], fields[i].DataTypeOID)
		}
		row, err := types.NewRow(st.Columns, values)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: materialize row: %v", ErrUnavailable, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: fetch rows: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: commit transaction: %v", ErrUnavailable, err)
	}

	s.log.Debug("store: page query",
		"total", total,
		"rows", len(out),
		"duration", time.Since(start),
	)
	return total, out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
