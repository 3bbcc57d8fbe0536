package types

import (
	"encoding/json"
	"fmt"
)

const (
	HealthzPath  = "/healthz"
	ReadyzPath   = "/readyz"
	DatasetsPath = "/datasets"
	MetricsPath  = "/metrics"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Op is the closed set of filter operators a query may use.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpGte, OpLte:
		return true
	}
	return false
}

// UnmarshalJSON rejects operators outside the allowed set at decode time, so
// malformed input never reaches the query engine.
func (o *Op) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("operator must be a string: %w", err)
	}
	v := Op(s)
	if !v.Valid() {
		return fmt.Errorf("unsupported operator %q (allowed: eq, gte, lte)", s)
	}
	*o = v
	return nil
}

type Filter struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
}

// DatasetQuery is the wire shape of a query request. Limit and Offset are
// pointers so an absent field is distinguishable from an explicit zero.
type DatasetQuery struct {
	Filters []Filter `json:"filters,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Limit   *int64   `json:"limit,omitempty"`
	Offset  *int64   `json:"offset,omitempty"`
}

// Normalize fills defaults (limit 100, offset 0) and enforces bounds. It is
// called at the transport boundary; out-of-range values are malformed input.
func (q *DatasetQuery) Normalize() error {
	if q.Limit == nil {
		v := int64(DefaultLimit)
		q.Limit = &v
	}
	if q.Offset == nil {
		v := int64(0)
		q.Offset = &v
	}
	if *q.Limit < 1 || *q.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, *q.Limit)
	}
	if *q.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", *q.Offset)
	}
	for i, f := range q.Filters {
		if f.Column == "" {
			return fmt.Errorf("filter %d: column is required", i)
		}
		if !f.Op.Valid() {
			return fmt.Errorf("filter %d: unsupported operator %q (allowed: eq, gte, lte)", i, f.Op)
		}
	}
	return nil
}

type ColumnMeta struct {
	Name        string  `json:"name"`
	DType       string  `json:"dtype"`
	Description string  `json:"description,omitempty"`
	Units       *string `json:"units,omitempty"`
	Nullable    bool    `json:"nullable,omitempty"`
}

type DatasetMeta struct {
	DatasetID   string       `json:"dataset_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	PrimaryKey  []string     `json:"primary_key"`
	Columns     []ColumnMeta `json:"columns"`
	SampleSize  *int64       `json:"sample_size"`
}

// DatasetSlice is one page of a query result. NextOffset is null when no rows
// remain beyond this page.
type DatasetSlice struct {
	DatasetID  string `json:"dataset_id"`
	Total      int64  `json:"total"`
	Returned   int    `json:"returned"`
	Offset     int64  `json:"offset"`
	NextOffset *int64 `json:"next_offset"`
	Data       []Row  `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
