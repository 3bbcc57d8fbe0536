package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Row is an ordered column name → value mapping. Unlike a Go map it marshals
// its keys in insertion order, so a projection's declared column order is
// preserved all the way to the wire and back.
type Row struct {
	columns []string
	values  []any
}

func NewRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return Row{}, fmt.Errorf("row has %d columns but %d values", len(columns), len(values))
	}
	return Row{columns: columns, values: values}, nil
}

func (r Row) Len() int { return len(r.columns) }

func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map flattens the row into a plain map, dropping order.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		out[c] = r.values[i]
	}
	return out
}

// Equal reports whether two rows have the same columns, order, and values.
func (r Row) Equal(o Row) bool {
	if len(r.columns) != len(o.columns) {
		return false
	}
	for i := range r.columns {
		if r.columns[i] != o.columns[i] {
			return false
		}
		if !reflect.DeepEqual(r.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object token-by-token so key order survives the
// round trip. Numbers decode as json.Number to avoid float truncation.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", tok)
	}

	var columns []string
	var values []any
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("row key must be a string, got %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		columns = append(columns, key)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	r.columns = columns
	r.values = values
	return nil
}
