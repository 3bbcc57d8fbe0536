package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bbrzycki/datasetd/pkg/types"
)

type QueryCmd struct{}

func NewQueryCmd() *QueryCmd {
	return &QueryCmd{}
}

func (c *QueryCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <dataset-id>",
		Short: "Query a dataset with filters, projection, and pagination",
		Long: `Query a dataset with filters, projection, and pagination.

Filters are --filter col=op=value with op one of eq, gte, lte and may repeat;
multiple filters combine with AND. Values parse as numbers when they look
numeric, otherwise as strings.`,
		Example: `  datasetctl query pitching_outings --filter season=eq=2021 --limit 10
  datasetctl query pitching_outings --filter outs_recorded=gte=12 --columns player_name,outs_recorded
  datasetctl query pitching_outings --offset 100 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filterSpecs, err := cmd.Flags().GetStringArray("filter")
			if err != nil {
				return fmt.Errorf("failed to get filter flag: %w", err)
			}
			columnsSpec, err := cmd.Flags().GetString("columns")
			if err != nil {
				return fmt.Errorf("failed to get columns flag: %w", err)
			}
			limit, err := cmd.Flags().GetInt64("limit")
			if err != nil {
				return fmt.Errorf("failed to get limit flag: %w", err)
			}
			offset, err := cmd.Flags().GetInt64("offset")
			if err != nil {
				return fmt.Errorf("failed to get offset flag: %w", err)
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}

			filters, err := parseFilterSpecs(filterSpecs)
			if err != nil {
				return err
			}

			q := &types.DatasetQuery{
				Filters: filters,
				Limit:   &limit,
				Offset:  &offset,
			}
			if columnsSpec != "" {
				for _, col := range strings.Split(columnsSpec, ",") {
					if col = strings.TrimSpace(col); col != "" {
						q.Columns = append(q.Columns, col)
					}
				}
			}

			ctx, api, err := commandContext(cmd)
			if err != nil {
				return err
			}

			slice, err := api.QueryDataset(ctx, args[0], q)
			if err != nil {
				return fmt.Errorf("failed to query dataset: %w", err)
			}

			if asJSON {
				return printJSON(slice)
			}

			renderSlice(slice)
			return nil
		},
	}
	cmd.Flags().StringArray("filter", nil, "filter as col=op=value (op: eq, gte, lte); repeatable")
	cmd.Flags().String("columns", "", "comma-separated columns to return (default: all)")
	cmd.Flags().Int64("limit", types.DefaultLimit, fmt.Sprintf("page size, 1-%d", types.MaxLimit))
	cmd.Flags().Int64("offset", 0, "row offset to start the page at")
	cmd.Flags().Bool("json", false, "emit raw API JSON")
	return cmd
}

// parseFilterSpecs parses repeated col=op=value flags. Values that look like
// numbers are sent as numbers so numeric comparisons behave in the store.
func parseFilterSpecs(specs []string) ([]types.Filter, error) {
	filters := make([]types.Filter, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid filter %q, expected col=op=value", spec)
		}
		op := types.Op(parts[1])
		if !op.Valid() {
			return nil, fmt.Errorf("invalid filter %q: operator must be one of eq, gte, lte", spec)
		}
		filters = append(filters, types.Filter{
			Column: parts[0],
			Op:     op,
			Value:  parseFilterValue(parts[2]),
		})
	}
	return filters, nil
}

func parseFilterValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func renderSlice(slice *types.DatasetSlice) {
	if slice.Returned == 0 {
		fmt.Printf("No rows (total %d)\n", slice.Total)
		return
	}

	header := slice.Data[0].Columns()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	for _, row := range slice.Data {
		cells := make([]string, len(header))
		for i, col := range header {
			v, _ := row.Get(col)
			if v == nil {
				cells[i] = ""
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		table.Append(cells)
	}
	table.Render()

	next := "none"
	if slice.NextOffset != nil {
		next = strconv.FormatInt(*slice.NextOffset, 10)
	}
	fmt.Printf("total %d, returned %d, offset %d, next offset %s\n",
		slice.Total, slice.Returned, slice.Offset, next)
}
