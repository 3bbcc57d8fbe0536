package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load walks dir recursively, parses every .json/.yaml/.yml file into a
// descriptor, and builds the catalog. Any invalid descriptor, duplicate
// dataset_id, or an empty result is a fatal load error: the caller must not
// start serving with a partial catalog. Files are visited in sorted path
// order so failures are deterministic.
func Load(log *slog.Logger, dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("registry directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry path %q is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk registry directory %q: %w", dir, err)
	}
	sort.Strings(paths)

	byID := make(map[string]*Descriptor, len(paths))
	for _, path := range paths {
		d, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load descriptor %q: %w", path, err)
		}
		if prev, ok := byID[d.DatasetID]; ok {
			return nil, fmt.Errorf("duplicate dataset_id %q in %q (already declared in %q)",
				d.DatasetID, path, prev.sourcePath)
		}
		byID[d.DatasetID] = d
		log.Debug("registry: loaded descriptor",
			"dataset_id", d.DatasetID,
			"path", path,
			"columns", len(d.Columns),
		)
	}

	if len(byID) == 0 {
		return nil, fmt.Errorf("registry directory %q contains no dataset descriptors", dir)
	}

	catalog := newCatalog(byID)
	log.Info("registry: catalog loaded", "datasets", catalog.Len(), "dir", dir)
	return catalog, nil
}

func loadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d Descriptor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported descriptor extension %q", filepath.Ext(path))
	}

	d.sourcePath = path
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
