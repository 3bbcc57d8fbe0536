package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bbrzycki/datasetd/internal/mcpserver/metrics"
	"github.com/bbrzycki/datasetd/internal/query"
	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

type QueryDatasetInput struct {
	DatasetID string         `json:"dataset_id"`
	Filters   []types.Filter `json:"filters,omitempty"`
	Columns   []string       `json:"columns,omitempty"`
	Limit     int64          `json:"limit,omitempty"`
	Offset    int64          `json:"offset,omitempty"`
}

type QueryRow map[string]any

type QueryDatasetOutput struct {
	DatasetID  string     `json:"dataset_id"`
	Columns    []string   `json:"columns"`
	Rows       []QueryRow `json:"rows"`
	Total      int64      `json:"total"`
	Returned   int        `json:"returned"`
	Offset     int64      `json:"offset"`
	NextOffset *int64     `json:"next_offset"`
}

func RegisterQueryDatasetTool(log *slog.Logger, server *mcp.Server, catalog *registry.Catalog, executor *query.Executor) error {
	req, err := jsonschema.For[QueryDatasetInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create query-dataset input schema: %w", err)
	}

	res, err := jsonschema.For[QueryDatasetOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create query-dataset output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name: "query-dataset",
		Description: `
			Query a dataset with optional per-column filters, column projection, and offset pagination.

			USAGE RULES:
			- Use describe-dataset first to learn the column names. Do not guess them.
			- Filters are {column, op, value} with op one of "eq", "gte", "lte"; multiple filters combine with AND.
			- "columns" projects a subset of columns; omit it for all columns.
			- "limit" is capped at 500 (default 100). Follow "next_offset" to page through large results.
		`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req QueryDatasetInput) (*mcp.CallToolResult, QueryDatasetOutput, error) {
		startTime := time.Now()
		toolName := "query-dataset"

		log.Debug("mcp/tool: handling query-dataset",
			"dataset_id", req.DatasetID,
			"filters", len(req.Filters),
		)

		out, err := handleQueryDataset(ctx, catalog, executor, req)
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(startTime).Seconds())
			return nil, QueryDatasetOutput{}, err
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(startTime).Seconds())
		return nil, out, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

func handleQueryDataset(ctx context.Context, catalog *registry.Catalog, executor *query.Executor, req QueryDatasetInput) (QueryDatasetOutput, error) {
	if req.DatasetID == "" {
		return QueryDatasetOutput{}, fmt.Errorf("dataset_id is required")
	}
	d, err := catalog.Get(req.DatasetID)
	if err != nil {
		return QueryDatasetOutput{}, err
	}

	q := &types.DatasetQuery{
		Filters: req.Filters,
		Columns: req.Columns,
	}
	if req.Limit != 0 {
		q.Limit = &req.Limit
	}
	if req.Offset != 0 {
		q.Offset = &req.Offset
	}

	slice, err := executor.Execute(ctx, d, q)
	if err != nil {
		return QueryDatasetOutput{}, fmt.Errorf("failed to execute query: %w", err)
	}

	columns := req.Columns
	if len(columns) == 0 {
		columns = d.ColumnNames()
	}
	rows := make([]QueryRow, len(slice.Data))
	for i, row := range slice.Data {
		rows[i] = row.Map()
	}

	return QueryDatasetOutput{
		DatasetID:  slice.DatasetID,
		Columns:    columns,
		Rows:       rows,
		Total:      slice.Total,
		Returned:   slice.Returned,
		Offset:     slice.Offset,
		NextOffset: slice.NextOffset,
	}, nil
}
