package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bbrzycki/datasetd/internal/registrygen"
)

type RegistryCmd struct{}

func NewRegistryCmd() *RegistryCmd {
	return &RegistryCmd{}
}

func (c *RegistryCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage dataset descriptor files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(c.generateCommand())
	return cmd
}

func (c *RegistryCmd) generateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Introspect Postgres and emit dataset descriptor stubs",
		Long: `Introspect Postgres and emit one descriptor stub per base table under
<out>/<schema>/<table>.json. Stubs carry the introspected columns and primary
key; name and description are meant to be curated by hand afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, verbose, err := rootFlags(cmd)
			if err != nil {
				return err
			}
			databaseURL, err := cmd.Flags().GetString("database-url")
			if err != nil {
				return fmt.Errorf("failed to get database-url flag: %w", err)
			}
			schemas, err := cmd.Flags().GetStringSlice("schemas")
			if err != nil {
				return fmt.Errorf("failed to get schemas flag: %w", err)
			}
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return fmt.Errorf("failed to get out flag: %w", err)
			}

			log := newLogger(verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ids, err := registrygen.Generate(ctx, log, registrygen.Config{
				DatabaseURL: databaseURL,
				Schemas:     schemas,
				OutDir:      out,
			})
			if err != nil {
				return fmt.Errorf("failed to generate registry: %w", err)
			}

			fmt.Printf("Wrote %d dataset stubs under %s/<schema>/<table>.json\n", len(ids), out)
			return nil
		},
	}
	cmd.Flags().String("database-url", getenv("DATABASE_URL", ""), "Postgres connection URL (env: DATABASE_URL)")
	cmd.Flags().StringSlice("schemas", []string{"marts_baseball", "staging_baseball"}, "schemas to introspect")
	cmd.Flags().String("out", "dataset_registry.generated", "output directory for descriptor stubs")
	return cmd
}
