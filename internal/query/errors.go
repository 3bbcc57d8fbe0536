// Package query compiles validated dataset queries into parameterized count
// and fetch statements and executes them through a store, producing paginated
// result envelopes. Identifiers are always quoted and values always bind as
// parameters; no user input reaches statement text.
package query

import (
	"fmt"
	"strings"
)

// InvalidColumnError reports every unknown projection or filter column in a
// request at once, so a caller can fix the whole request in one pass.
type InvalidColumnError struct {
	DatasetID string
	Columns   []string
}

func (e *InvalidColumnError) Error() string {
	return fmt.Sprintf("dataset %q has no column(s): %s", e.DatasetID, strings.Join(e.Columns, ", "))
}
