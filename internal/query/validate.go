package query

import (
	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

// Resolve validates the requested projection and filter columns against the
// descriptor and returns the effective projection in output order. An absent
// or empty projection means every descriptor column in declared order. All
// unknown names, across projection and filters, come back in one
// InvalidColumnError. A filter column does not need to appear in the
// projection.
func Resolve(d *registry.Descriptor, q *types.DatasetQuery) ([]string, error) {
	var unknown []string

	columns := q.Columns
	if len(columns) == 0 {
		columns = d.ColumnNames()
	} else {
		for _, c := range columns {
			if !d.HasColumn(c) {
				unknown = append(unknown, c)
			}
		}
	}

	for _, f := range q.Filters {
		if !d.HasColumn(f.Column) {
			unknown = append(unknown, f.Column)
		}
	}

	if len(unknown) > 0 {
		return nil, &InvalidColumnError{DatasetID: d.DatasetID, Columns: dedupe(unknown)}
	}
	return columns, nil
}

// dedupe drops repeated names, keeping first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
