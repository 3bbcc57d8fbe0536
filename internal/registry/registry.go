// Package registry loads dataset descriptors from a directory tree and holds
// them as an immutable in-memory catalog. The catalog is built once at
// startup and handed to consumers by reference; it is never mutated after
// construction, so concurrent readers need no locking.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bbrzycki/datasetd/pkg/types"
)

// ErrNotFound is returned by catalog lookups for unknown dataset ids.
var ErrNotFound = errors.New("dataset not found")

type Column struct {
	Name        string  `json:"name" yaml:"name"`
	DType       string  `json:"dtype" yaml:"dtype"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Units       *string `json:"units,omitempty" yaml:"units,omitempty"`
	Nullable    bool    `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// Descriptor describes one dataset: the backing relational object, its
// columns in declared order, and display metadata. Schema, Table, and column
// names are emitted through identifier quoting by the query translator and
// are never interpolated into statement text.
type Descriptor struct {
	DatasetID   string   `json:"dataset_id" yaml:"dataset_id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      string   `json:"schema" yaml:"schema"`
	Table       string   `json:"table" yaml:"table"`
	PrimaryKey  []string `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Columns     []Column `json:"columns" yaml:"columns"`
	SampleSize  *int64   `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`

	sourcePath string
	columnSet  map[string]struct{}
}

// Validate checks the load-time invariants and builds the derived column set.
func (d *Descriptor) Validate() error {
	if d.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if d.Schema == "" {
		return fmt.Errorf("dataset %q: schema is required", d.DatasetID)
	}
	if d.Table == "" {
		return fmt.Errorf("dataset %q: table is required", d.DatasetID)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset %q: at least one column is required", d.DatasetID)
	}
	d.columnSet = make(map[string]struct{}, len(d.Columns))
	for i, col := range d.Columns {
		if col.Name == "" {
			return fmt.Errorf("dataset %q: column %d has no name", d.DatasetID, i)
		}
		if _, ok := d.columnSet[col.Name]; ok {
			return fmt.Errorf("dataset %q: duplicate column %q", d.DatasetID, col.Name)
		}
		d.columnSet[col.Name] = struct{}{}
	}
	for _, pk := range d.PrimaryKey {
		if _, ok := d.columnSet[pk]; !ok {
			return fmt.Errorf("dataset %q: primary key column %q is not a declared column", d.DatasetID, pk)
		}
	}
	return nil
}

func (d *Descriptor) HasColumn(name string) bool {
	_, ok := d.columnSet[name]
	return ok
}

// ColumnNames returns the column names in declared order.
func (d *Descriptor) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// SourcePath is the file the descriptor was loaded from, for diagnostics.
func (d *Descriptor) SourcePath() string { return d.sourcePath }

// Meta converts the descriptor to its wire representation.
func (d *Descriptor) Meta() types.DatasetMeta {
	cols := make([]types.ColumnMeta, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = types.ColumnMeta{
			Name:        c.Name,
			DType:       c.DType,
			Description: c.Description,
			Units:       c.Units,
			Nullable:    c.Nullable,
		}
	}
	pk := d.PrimaryKey
	if pk == nil {
		pk = []string{}
	}
	return types.DatasetMeta{
		DatasetID:   d.DatasetID,
		Name:        d.Name,
		Description: d.Description,
		PrimaryKey:  pk,
		Columns:     cols,
		SampleSize:  d.SampleSize,
	}
}

// Catalog is the immutable set of loaded descriptors keyed by dataset id.
type Catalog struct {
	byID map[string]*Descriptor
	ids  []string
}

// NewCatalog builds a catalog from validated descriptors. Load is the
// production path; this constructor exists for synthetic catalogs in tests.
func NewCatalog(descriptors ...*Descriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("catalog requires at least one descriptor")
	}
	byID := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := byID[d.DatasetID]; ok {
			return nil, fmt.Errorf("duplicate dataset_id %q", d.DatasetID)
		}
		byID[d.DatasetID] = d
	}
	return newCatalog(byID), nil
}

func newCatalog(byID map[string]*Descriptor) *Catalog {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Catalog{byID: byID, ids: ids}
}

// Get returns the descriptor for id, or an error wrapping ErrNotFound.
func (c *Catalog) Get(id string) (*Descriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return d, nil
}

// List returns all descriptors sorted by dataset id.
func (c *Catalog) List() []*Descriptor {
	out := make([]*Descriptor, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.byID[id]
	}
	return out
}

func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

func (c *Catalog) Len() int { return len(c.ids) }
