package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/0bese/fhir-mcp/pkg/mockfhir"
)

// ValidateOutput represents JSON output format for the validate command.
type ValidateOutput struct {
	File      string         `json:"file"`
	Valid     bool           `json:"valid"`
	Resources int            `json:"resources"`
	Types     map[string]int `json:"types,omitempty"`
	Error     string         `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate seed files without starting a server",
	Long: `Validate one or more seed files. Each file may contain a single FHIR
resource, an array of resources, or a Bundle. Reports per-type resource
counts, or the first structural problem found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []ValidateOutput
		failed := false

		for _, path := range args {
			result := ValidateOutput{File: path}

			resources, err := mockfhir.LoadSeedFile(path)
			if err != nil {
				result.Error = err.Error()
				failed = true
			} else {
				result.Valid = true
				result.Resources = len(resources)
				result.Types = make(map[string]int)
				for _, resource := range resources {
					rt, _ := resource["resourceType"].(string)
					result.Types[rt]++
				}
			}
			results = append(results, result)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			for _, result := range results {
				if !result.Valid {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: INVALID: %s\n", result.File, result.Error)
					continue
				}

				types := make([]string, 0, len(result.Types))
				for rt := range result.Types {
					types = append(types, rt)
				}
				sort.Strings(types)

				fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d resources)\n", result.File, result.Resources)
				for _, rt := range types {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", rt, result.Types[rt])
				}
			}
		}

		if failed {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
