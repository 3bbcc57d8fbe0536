package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bbrzycki/datasetd/internal/mcpserver/metrics"
	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

type DescribeDatasetInput struct {
	DatasetIDs []string `json:"dataset_ids"`
}

type DescribeDatasetOutput struct {
	Datasets []types.DatasetMeta `json:"datasets"`
}

func RegisterDescribeDatasetTool(log *slog.Logger, server *mcp.Server, catalog *registry.Catalog) error {
	req, err := jsonschema.For[DescribeDatasetInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create describe-dataset input schema: %w", err)
	}

	res, err := jsonschema.For[DescribeDatasetOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create describe-dataset output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "describe-dataset",
		Description:  `Get the full schema for one or more datasets: backing columns with types and descriptions, primary key, and sample size. Use list-datasets first to discover dataset ids; consult this before building query-dataset filters or projections.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req DescribeDatasetInput) (*mcp.CallToolResult, DescribeDatasetOutput, error) {
		startTime := time.Now()
		toolName := "describe-dataset"

		log.Debug("mcp/tool: handling describe-dataset", "dataset_ids", req.DatasetIDs)

		out, err := handleDescribeDataset(catalog, req)
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(startTime).Seconds())
			return nil, DescribeDatasetOutput{}, err
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(time.Since(startTime).Seconds())
		return nil, out, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

// handleDescribeDataset resolves every requested id, reporting all unknown
// ids together rather than stopping at the first.
func handleDescribeDataset(catalog *registry.Catalog, req DescribeDatasetInput) (DescribeDatasetOutput, error) {
	if len(req.DatasetIDs) == 0 {
		return DescribeDatasetOutput{}, fmt.Errorf("at least one dataset id is required")
	}

	metas := make([]types.DatasetMeta, 0, len(req.DatasetIDs))
	var unknown []string
	for _, id := range req.DatasetIDs {
		d, err := catalog.Get(id)
		if err != nil {
			unknown = append(unknown, id)
			continue
		}
		metas = append(metas, d.Meta())
	}
	if len(unknown) > 0 {
		return DescribeDatasetOutput{}, fmt.Errorf("unknown dataset id(s): %s", strings.Join(unknown, ", "))
	}
	return DescribeDatasetOutput{Datasets: metas}, nil
}
