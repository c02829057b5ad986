package mockfhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

// Common errors for seed file loading.
var (
	ErrSeedNotFound = errors.New("seed file not found")
	ErrSeedEmpty    = errors.New("seed file is empty")
	ErrSeedInvalid  = errors.New("seed file is not valid JSON or YAML")
)

// LoadSeedFile reads seed resources from a JSON or YAML file. The format is
// detected from the extension (.yaml/.yml for YAML, otherwise JSON). The file
// may contain a single resource, an array of resources, or a FHIR Bundle;
// Bundle entries are unwrapped. Every resource is validated structurally
// before being returned.
func LoadSeedFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, path)
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSeedEmpty, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		// Normalize through JSON so stored values use JSON scalar types.
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSeedInvalid, path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("normalize YAML seed: %w", err)
		}
	}

	resources, err := parseSeedJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSeedInvalid, path, err)
	}

	for i, resource := range resources {
		if err := ValidateResource(resource, ""); err != nil {
			return nil, fmt.Errorf("seed resource %d in %s: %w", i, path, err)
		}
	}
	return resources, nil
}

// parseSeedJSON decodes a seed payload in any of its accepted shapes.
func parseSeedJSON(data []byte) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case []any:
		resources := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("array element %d is not an object", i)
			}
			resources = append(resources, m)
		}
		return resources, nil

	case map[string]any:
		if fhir.IsBundle(v) {
			entries := fhir.BundleEntries(v)
			if len(entries) == 0 {
				return nil, errors.New("bundle has no entry resources")
			}
			return entries, nil
		}
		return []map[string]any{v}, nil

	default:
		return nil, errors.New("top-level value must be an object or array")
	}
}

// LoadSeedFiles loads and concatenates resources from multiple seed files.
func LoadSeedFiles(paths []string) ([]map[string]any, error) {
	var all []map[string]any
	for _, path := range paths {
		resources, err := LoadSeedFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, resources...)
	}
	return all, nil
}
