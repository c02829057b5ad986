package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with the given args and captures output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		jsonOutput = false
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `[
		{"resourceType": "Patient", "id": "p1"},
		{"resourceType": "Patient", "id": "p2"},
		{"resourceType": "Observation", "id": "o1"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	out, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK (3 resources)")
	assert.Contains(t, out, "Observation: 1")
	assert.Contains(t, out, "Patient: 2")
}

func TestValidateCommandInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "no-type"}`), 0644))

	out, err := runCommand(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "INVALID")
}

func TestValidateCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidateCommandJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resourceType: Patient\nid: p1\n"), 0644))

	out, err := runCommand(t, "--json", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
	assert.Contains(t, out, `"resources": 1`)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fhir-mcp")
}
