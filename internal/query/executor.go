package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

// Store executes a compiled page query. Both statements run against one
// snapshot, so the returned total and rows agree even under concurrent
// writers. Implementations live in internal/store; the executor never sees
// driver types.
type Store interface {
	QueryPage(ctx context.Context, st *Statement) (total int64, rows []types.Row, err error)
}

type Executor struct {
	log   *slog.Logger
	store Store
}

func NewExecutor(log *slog.Logger, store Store) (*Executor, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Executor{log: log, store: store}, nil
}

// Execute resolves, translates, and runs a query against the dataset,
// assembling the result envelope. next_offset is offset+limit when more rows
// remain beyond this page, computed from the total alone. The transport
// boundary normalizes requests before calling; the guard here covers direct
// callers.
func (e *Executor) Execute(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	columns, err := Resolve(d, q)
	if err != nil {
		return nil, err
	}

	limit, offset := *q.Limit, *q.Offset
	st, err := Translate(d, columns, q.Filters, limit, offset)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	total, rows, err := e.store.QueryPage(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", d.DatasetID, err)
	}
	if total < 0 {
		total = 0
	}
	if rows == nil {
		rows = []types.Row{}
	}

	// Compare as offset < total-limit: offset+limit overflows for extreme
	// offsets, the subtraction cannot once limit <= total.
	var next *int64
	if limit <= total && offset < total-limit {
		n := offset + limit
		next = &n
	}

	e.log.Debug("query: executed",
		"dataset_id", d.DatasetID,
		"filters", len(q.Filters),
		"limit", limit,
		"offset", offset,
		"total", total,
		"returned", len(rows),
		"duration", time.Since(start),
	)

	return &types.DatasetSlice{
		DatasetID:  d.DatasetID,
		Total:      total,
		Returned:   len(rows),
		Offset:     offset,
		NextOffset: next,
		Data:       rows,
	}, nil
}
