package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

// Statement is a compiled page query: a count statement and a fetch statement
// sharing one predicate, with their bound argument lists. Columns carries the
// projection order for row materialization.
type Statement struct {
	CountSQL  string
	CountArgs []any
	FetchSQL  string
	FetchArgs []any
	Columns   []string
}

// quoteIdent escapes a name for use as a double-quoted SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// comparator maps the closed operator set to its comparison symbol. Anything
// outside the set is a translation error, not a fallthrough.
func comparator(op types.Op) (string, error) {
	switch op {
	case types.OpEq:
		return "=", nil
	case types.OpGte:
		return ">=", nil
	case types.OpLte:
		return "<=", nil
	}
	return "", fmt.Errorf("unsupported operator %q", op)
}

// Translate compiles a resolved projection and validated filters into the
// count and fetch statements. Filters combine with AND in the order given,
// values bind as positional parameters ($1..$n), and limit/offset bind as the
// final two fetch parameters. The fetch orders by the descriptor's primary
// key when one is declared; with no primary key, row order across pages is
// store-defined.
func Translate(d *registry.Descriptor, columns []string, filters []types.Filter, limit, offset int64) (*Statement, error) {
	if len(columns) == 0 {
		return nil, errors.New("projection requires at least one column")
	}

	relation := quoteIdent(d.Schema) + "." + quoteIdent(d.Table)

	var where strings.Builder
	args := make([]any, 0, len(filters)+2)
	for i, f := range filters {
		cmp, err := comparator(f.Op)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			where.WriteString(" WHERE ")
		} else {
			where.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&where, "%s %s $%d", quoteIdent(f.Column), cmp, len(args))
	}

	countSQL := "SELECT COUNT(*) FROM " + relation + where.String()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}

	var fetch strings.Builder
	fetch.WriteString("SELECT ")
	fetch.WriteString(strings.Join(quoted, ", "))
	fetch.WriteString(" FROM ")
	fetch.WriteString(relation)
	fetch.WriteString(where.String())
	if len(d.PrimaryKey) > 0 {
		pks := make([]string, len(d.PrimaryKey))
		for i, pk := range d.PrimaryKey {
			pks[i] = quoteIdent(pk)
		}
		fetch.WriteString(" ORDER BY ")
		fetch.WriteString(strings.Join(pks, ", "))
	}
	fmt.Fprintf(&fetch, " LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	fetchArgs := make([]any, 0, len(args)+2)
	fetchArgs = append(fetchArgs, args...)
	fetchArgs = append(fetchArgs, limit, offset)

	return &Statement{
		CountSQL:  countSQL,
		CountArgs: args,
		FetchSQL:  fetch.String(),
		FetchArgs: fetchArgs,
		Columns:   columns,
	}, nil
}
