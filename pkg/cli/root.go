// Package cli implements the fhir-mcp command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// jsonOutput switches command results to JSON format.
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fhir-mcp",
	Short: "fhir-mcp is a mock FHIR server with an MCP interface for AI assistants",
	Long: `fhir-mcp serves an in-memory mock FHIR R4 server for local development
and testing, and exposes common FHIR operations (patient lookup, clinical
searches, data-quality assessment) as MCP tools for AI assistants.

Run 'fhir-mcp serve' to start the mock FHIR server, or 'fhir-mcp mcp' to
speak the MCP protocol over stdin/stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
