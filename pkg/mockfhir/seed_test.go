package mockfhir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFileJSONArray(t *testing.T) {
	path := writeSeedFile(t, "seed.json", `[
		{"resourceType": "Patient", "id": "p1"},
		{"resourceType": "Observation", "id": "o1"}
	]`)

	resources, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "Patient", resources[0]["resourceType"])
	assert.Equal(t, "o1", resources[1]["id"])
}

func TestLoadSeedFileSingleResource(t *testing.T) {
	path := writeSeedFile(t, "seed.json", `{"resourceType": "Patient", "id": "p1"}`)

	resources, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "p1", resources[0]["id"])
}

func TestLoadSeedFileBundle(t *testing.T) {
	path := writeSeedFile(t, "bundle.json", `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "p1"}},
			{"resource": {"resourceType": "Condition", "id": "c1"}}
		]
	}`)

	resources, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "Condition", resources[1]["resourceType"])
}

func TestLoadSeedFileYAML(t *testing.T) {
	path := writeSeedFile(t, "seed.yaml", `
- resourceType: Patient
  id: p1
  name:
    - family: Smith
      given: [Jane]
- resourceType: Observation
  id: o1
  valueQuantity:
    value: 7.2
    unit: mmol/L
`)

	resources, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	// YAML scalars must be normalized to JSON types before storage.
	vq, ok := resources[1]["valueQuantity"].(map[string]any)
	require.True(t, ok)
	assert.IsType(t, float64(0), vq["value"])
}

func TestLoadSeedFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"missing file", "", "", ErrSeedNotFound},
		{"empty file", "empty.json", "", ErrSeedEmpty},
		{"bad json", "bad.json", "{not json", ErrSeedInvalid},
		{"bad yaml", "bad.yaml", ":\n\t-", ErrSeedInvalid},
		{"scalar top level", "scalar.json", `"hello"`, ErrSeedInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nope.json")
			if tt.file != "" {
				path = writeSeedFile(t, tt.file, tt.content)
			}
			_, err := LoadSeedFile(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadSeedFileRejectsInvalidResource(t *testing.T) {
	path := writeSeedFile(t, "seed.json", `[{"id": "missing-type"}]`)

	_, err := LoadSeedFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resourceType")
}

func TestLoadSeedFiles(t *testing.T) {
	a := writeSeedFile(t, "a.json", `{"resourceType": "Patient", "id": "p1"}`)
	b := writeSeedFile(t, "b.json", `{"resourceType": "Patient", "id": "p2"}`)

	resources, err := LoadSeedFiles([]string{a, b})
	require.NoError(t, err)
	assert.Len(t, resources, 2)

	_, err = LoadSeedFiles([]string{a, filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, ErrSeedNotFound)
}
