package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bbrzycki/datasetd/internal/mcpserver/metrics"
	"github.com/bbrzycki/datasetd/internal/registry"
)

type ListDatasetsInput struct{}

type DatasetSummary struct {
	DatasetID   string `json:"dataset_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ColumnCount int    `json:"column_count"`
	SampleSize  *int64 `json:"sample_size,omitempty"`
}

type ListDatasetsOutput struct {
	Datasets []DatasetSummary `json:"datasets"`
}

func RegisterListDatasetsTool(log *slog.Logger, server *mcp.Server, catalog *registry.Catalog) error {
	req, err := jsonschema.For[ListDatasetsInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list-datasets input schema: %w", err)
	}

	res, err := jsonschema.For[ListDatasetsOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list-datasets output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "list-datasets",
		Description:  `List all available datasets. Returns dataset ids with brief descriptions and column counts. Use this to discover datasets before requesting full schemas with "describe-dataset" or rows with "query-dataset".`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ListDatasetsInput) (*mcp.CallToolResult, ListDatasetsOutput, error) {
		startTime := time.Now()
		toolName := "list-datasets"

		log.Debug("mcp/tool: handling list-datasets")

		out := handleListDatasets(catalog)

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(startTime).Seconds())
		return nil, out, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

func handleListDatasets(catalog *registry.Catalog) ListDatasetsOutput {
	descriptors := catalog.List()
	summaries := make([]DatasetSummary, len(descriptors))
	for i, d := range descriptors {
		summaries[i] = DatasetSummary{
			DatasetID:   d.DatasetID,
			Name:        d.Name,
			Description: truncateDescription(d.Description, 200),
			ColumnCount: len(d.Columns),
			SampleSize:  d.SampleSize,
		}
	}
	return ListDatasetsOutput{Datasets: summaries}
}

// truncateDescription shortens s to at most max runes, cutting on a rune
// boundary so the output stays valid UTF-8.
func truncateDescription(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
