package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/0bese/fhir-mcp/pkg/logging"
	"github.com/0bese/fhir-mcp/pkg/mcp"
)

// mcpFlagVals is the package-level instance bound to cobra flags.
var mcpFlagVals mcpFlags

type mcpFlags struct {
	fhirURL   string
	authToken string
	logLevel  string
}

// mcpCmd is the Cobra command for "fhir-mcp mcp".
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server in stdio mode for AI assistants",
	Long: `Start the Model Context Protocol (MCP) server in stdio mode.

This is used by AI assistants (Claude Desktop, Cursor, etc.) to query
FHIR servers through the MCP protocol over stdin/stdout. Every tool
call names its target server via fhir_base_url; --fhir-url sets the
default target.

All logs go to stderr; stdout carries only protocol messages.`,
	Example: `  # Target a locally running mock server
  fhir-mcp mcp --fhir-url http://localhost:8945

  # Target a real server with a bearer token
  fhir-mcp mcp --fhir-url https://fhir.example.com/r4 --auth-token $TOKEN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPStdio(&mcpFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	f := &mcpFlagVals
	mcpCmd.Flags().StringVar(&f.fhirURL, "fhir-url", "", "Default FHIR server base URL for tool calls")
	mcpCmd.Flags().StringVar(&f.authToken, "auth-token", "", "Default bearer token for tool calls")
	mcpCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runMCPStdio(f *mcpFlags) error {
	cfg := mcp.DefaultConfig()
	if f.fhirURL != "" {
		cfg.FHIRBaseURL = f.fhirURL
	}
	if f.authToken == "" {
		f.authToken = os.Getenv("FHIR_MCP_AUTH_TOKEN")
	}
	cfg.AuthToken = f.authToken

	log := logging.New(os.Stderr, logging.ParseLevel(f.logLevel), logging.FormatText)

	server := mcp.NewServer(cfg, nil)
	server.SetLogger(log)

	stdio := mcp.NewStdioServer(server)
	stdio.SetLogger(log)
	return stdio.Run()
}
