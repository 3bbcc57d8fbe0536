package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bbrzycki/datasetd/pkg/client"
)

type DatasetsCmd struct{}

func NewDatasetsCmd() *DatasetsCmd {
	return &DatasetsCmd{}
}

func (c *DatasetsCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List and describe datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(c.listCommand(), c.describeCommand())
	return cmd
}

func (c *DatasetsCmd) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all datasets in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}

			ctx, api, err := commandContext(cmd)
			if err != nil {
				return err
			}

			metas, err := api.ListDatasets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}

			if asJSON {
				return printJSON(metas)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)
			table.SetHeader([]string{"Dataset ID", "Name", "Columns", "Primary Key", "Sample Size"})
			for _, m := range metas {
				sample := "-"
				if m.SampleSize != nil {
					sample = strconv.FormatInt(*m.SampleSize, 10)
				}
				table.Append([]string{
					m.DatasetID,
					m.Name,
					strconv.Itoa(len(m.Columns)),
					strings.Join(m.PrimaryKey, ", "),
					sample,
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "emit raw API JSON")
	return cmd
}

func (c *DatasetsCmd) describeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <dataset-id>",
		Short: "Show the full schema of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}

			ctx, api, err := commandContext(cmd)
			if err != nil {
				return err
			}

			meta, err := api.GetDataset(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to describe dataset: %w", err)
			}

			if asJSON {
				return printJSON(meta)
			}

			fmt.Printf("Dataset:     %s\n", meta.DatasetID)
			fmt.Printf("Name:        %s\n", meta.Name)
			if meta.Description != "" {
				fmt.Printf("Description: %s\n", meta.Description)
			}
			if len(meta.PrimaryKey) > 0 {
				fmt.Printf("Primary key: %s\n", strings.Join(meta.PrimaryKey, ", "))
			}
			if meta.SampleSize != nil {
				fmt.Printf("Sample size: %d\n", *meta.SampleSize)
			}
			fmt.Println()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)
			table.SetHeader([]string{"Column", "Type", "Nullable", "Units", "Description"})
			for _, col := range meta.Columns {
				units := ""
				if col.Units != nil {
					units = *col.Units
				}
				table.Append([]string{
					col.Name,
					col.DType,
					strconv.FormatBool(col.Nullable),
					units,
					col.Description,
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "emit raw API JSON")
	return cmd
}

func commandContext(cmd *cobra.Command) (context.Context, *client.Client, error) {
	apiURL, _, err := rootFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	api, err := client.New(apiURL)
	if err != nil {
		return nil, nil, err
	}
	ctx, _ := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, api, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
