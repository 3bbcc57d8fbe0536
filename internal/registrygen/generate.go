// Package registrygen introspects a Postgres database and writes dataset
// descriptor stubs, one JSON file per table under <out>/<schema>/<table>.json.
// Stubs carry the introspected columns and primary key; name and description
// are meant to be hand-curated afterwards.
package registrygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
)

type Config struct {
	DatabaseURL string
	Schemas     []string
	OutDir      string
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required")
	}
	if len(c.Schemas) == 0 {
		return errors.New("at least one schema is required")
	}
	if c.OutDir == "" {
		return errors.New("output directory is required")
	}
	return nil
}

type table struct {
	schema string
	name   string
}

// Generate introspects every base table in the configured schemas and writes
// a descriptor stub per table. Returns the written dataset ids in
// introspection order (schema, then table).
func Generate(ctx context.Context, log *slog.Logger, cfg Config) ([]string, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	tables, err := fetchTables(ctx, conn, cfg.Schemas)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, tbl := range tables {
		columns, err := fetchColumns(ctx, conn, tbl)
		if err != nil {
			return nil, err
		}
		pk, err := fetchPrimaryKey(ctx, conn, tbl)
		if err != nil {
			return nil, err
		}

		datasetID := tbl.schema + "." + tbl.name
		stub := map[string]any{
			"dataset_id":  datasetID,
			"name":        friendlyName(tbl.name),
			"description": "",
			"schema":      tbl.schema,
			"table":       tbl.name,
			"primary_key": pk,
			"columns":     columns,
			"sample_size": nil,
		}

		if err := writeStub(cfg.OutDir, tbl, stub); err != nil {
			return nil, err
		}
		log.Debug("registrygen: wrote stub",
			"dataset_id", datasetID,
			"columns", len(columns),
			"primary_key", pk,
		)
		ids = append(ids, datasetID)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no base tables found in schema(s) %s", strings.Join(cfg.Schemas, ", "))
	}
	log.Info("registrygen: wrote dataset stubs", "count", len(ids), "out", cfg.OutDir)
	return ids, nil
}

func friendlyName(tableName string) string {
	words := strings.Split(tableName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func fetchTables(ctx context.Context, conn *pgx.Conn, schemas []string) ([]table, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema = ANY($1)
		ORDER BY table_schema, table_name
	`, schemas)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []table
	for rows.Next() {
		var tbl table
		if err := rows.Scan(&tbl.schema, &tbl.name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		out = append(out, tbl)
	}
	return out, rows.Err()
}

func fetchColumns(ctx context.Context, conn *pgx.Conn, tbl table) ([]map[string]any, error) {
	rows, err := conn.Query(ctx, `
		SELECT column_name, data_type, udt_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, tbl.schema, tbl.name)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", tbl.schema, tbl.name, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var name, dataType, udtName, isNullable string
		if err := rows.Scan(&name, &dataType, &udtName, &isNullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		dtype := udtName
		if dtype == "" {
			dtype = dataType
		}
		out = append(out, map[string]any{
			"name":        name,
			"dtype":       dtype,
			"description": "",
			"units":       nil,
			"nullable":    isNullable == "YES",
		})
	}
	return out, rows.Err()
}

// fetchPrimaryKey returns the table's primary key columns in index order, or
// an empty slice for tables without one.
func fetchPrimaryKey(ctx context.Context, conn *pgx.Conn, tbl table) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indisprimary
		  AND n.nspname = $1
		  AND c.relname = $2
		ORDER BY array_position(i.indkey, a.attnum)
	`, tbl.schema, tbl.name)
	if err != nil {
		return nil, fmt.Errorf("primary key for %s.%s: %w", tbl.schema, tbl.name, err)
	}
	defer rows.Close()

	pk := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan primary key row: %w", err)
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

func writeStub(outDir string, tbl table, stub map[string]any) error {
	dir := filepath.Join(outDir, tbl.schema)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}

	// encoding/json sorts map keys, matching the curated registry layout.
	data, err := json.MarshalIndent(stub, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stub for %s.%s: %w", tbl.schema, tbl.name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, tbl.name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write stub %q: %w", path, err)
	}
	return nil
}
