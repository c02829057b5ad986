package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0bese/fhir-mcp/pkg/config"
	"github.com/0bese/fhir-mcp/pkg/logging"
	"github.com/0bese/fhir-mcp/pkg/mcp"
	"github.com/0bese/fhir-mcp/pkg/mockfhir"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

// serveFlags holds all parsed command-line flags for the serve command.
type serveFlags struct {
	port       int
	configFile string
	seedFiles  []string
	token      string
	jwtSecret  string

	chaosErrorRate float64
	chaosLatency   time.Duration

	mcpEnabled     bool
	mcpPort        int
	mcpAllowRemote bool

	logLevel  string
	logFormat string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock FHIR server (foreground)",
	Long: `Start the mock FHIR server.

The server keeps all resources in memory and serves a FHIR R4 REST
surface (read, search, create, update, delete, metadata). Seed files
preload resources; --mcp co-hosts an MCP HTTP endpoint for AI
assistants.`,
	Example: `  # Start with defaults on port 8945
  fhir-mcp serve

  # Preload patients and require a bearer token
  fhir-mcp serve --seed patients.json --token dev-secret

  # Start from a config file with the MCP endpoint enabled
  fhir-mcp serve --config fhir-mcp.yaml --mcp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveFlagVals.token == "" {
			serveFlagVals.token = os.Getenv("FHIR_MCP_TOKEN")
		}
		return runServe(cmd, &serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals

	serveCmd.Flags().IntVarP(&f.port, "port", "p", 0, "FHIR server port (default 8945)")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to server configuration file (YAML or JSON)")
	serveCmd.Flags().StringSliceVar(&f.seedFiles, "seed", nil, "Seed file with FHIR resources (repeatable)")
	serveCmd.Flags().StringVar(&f.token, "token", "", "Require this bearer token (or set FHIR_MCP_TOKEN)")
	serveCmd.Flags().StringVar(&f.jwtSecret, "jwt-secret", "", "Verify bearer tokens as HS256 JWTs signed with this secret")

	serveCmd.Flags().Float64Var(&f.chaosErrorRate, "chaos-error-rate", 0, "Probability of injected 500 responses (0.0-1.0)")
	serveCmd.Flags().DurationVar(&f.chaosLatency, "chaos-latency", 0, "Fixed latency added to every request (e.g. 150ms)")

	serveCmd.Flags().BoolVar(&f.mcpEnabled, "mcp", false, "Enable the MCP (Model Context Protocol) HTTP server")
	serveCmd.Flags().IntVar(&f.mcpPort, "mcp-port", 0, "MCP server port (default 8946)")
	serveCmd.Flags().BoolVar(&f.mcpAllowRemote, "mcp-allow-remote", false, "Allow remote MCP connections")

	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
}

// buildServeConfig merges the config file (when given) with flag overrides.
// Flags win over file values.
func buildServeConfig(f *serveFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.port != 0 {
		cfg.Port = f.port
	}
	if len(f.seedFiles) > 0 {
		cfg.SeedFiles = append(cfg.SeedFiles, f.seedFiles...)
	}
	if f.token != "" {
		cfg.Auth.Token = f.token
	}
	if f.jwtSecret != "" {
		cfg.Auth.JWTSecret = f.jwtSecret
	}
	if f.chaosErrorRate > 0 {
		cfg.Chaos.ErrorRate = f.chaosErrorRate
	}
	if f.chaosLatency > 0 {
		cfg.Chaos.Latency = f.chaosLatency
	}
	if f.mcpEnabled {
		cfg.MCP.Enabled = true
	}
	if f.mcpPort != 0 {
		cfg.MCP.Port = f.mcpPort
	}
	if f.mcpAllowRemote {
		cfg.MCP.AllowRemote = true
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}

	cfg.ApplyDefaults()
	if cfg.MCP.Enabled && cfg.MCP.FHIRBaseURL == "" {
		cfg.MCP.FHIRBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe is the core serve logic called by the cobra command.
func runServe(cmd *cobra.Command, f *serveFlags) error {
	cfg, err := buildServeConfig(f)
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	store := mockfhir.NewStore(cfg.ResourceTypes...)
	if len(cfg.SeedFiles) > 0 {
		resources, err := mockfhir.LoadSeedFiles(cfg.SeedFiles)
		if err != nil {
			return fmt.Errorf("failed to load seed files: %w", err)
		}
		if err := store.Seed(resources); err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
		log.Info("seed resources loaded", "files", len(cfg.SeedFiles), "resources", len(resources))
	}

	handler := mockfhir.NewHandler(store,
		mockfhir.WithAuth(&cfg.Auth),
		mockfhir.WithChaos(cfg.Chaos),
		mockfhir.WithSoftware("fhir-mcp", Version),
		mockfhir.WithLogger(log.With("component", "fhir")),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var mcpServer *mcp.Server
	if cfg.MCP.Enabled {
		mcpServer = mcp.NewServer(&cfg.MCP, store)
		mcpServer.SetLogger(log.With("component", "mcp"))
		if err := mcpServer.Start(); err != nil {
			shutdownHTTP(httpServer, log)
			return fmt.Errorf("failed to start MCP server: %w", err)
		}
	}

	printStartupMessage(cmd, cfg, store)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if mcpServer != nil {
			_ = mcpServer.Stop()
		}
		return fmt.Errorf("FHIR server error: %w", err)
	}

	if mcpServer != nil {
		if err := mcpServer.Stop(); err != nil {
			log.Warn("MCP server shutdown error", "error", err)
		}
	}
	shutdownHTTP(httpServer, log)

	fmt.Fprintln(cmd.OutOrStdout(), "Server stopped")
	return nil
}

func shutdownHTTP(srv *http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server shutdown error", "error", err)
	}
}

// printStartupMessage prints where everything is listening.
func printStartupMessage(cmd *cobra.Command, cfg *config.Config, store *mockfhir.Store) {
	out := cmd.OutOrStdout()

	total := 0
	for _, count := range store.Overview() {
		total += count
	}

	if total > 0 {
		fmt.Fprintf(out, "fhir-mcp server started (%d resources)\n", total)
	} else {
		fmt.Fprintln(out, "fhir-mcp server started")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  FHIR server: http://localhost:%d\n", cfg.Port)
	fmt.Fprintf(out, "  Metadata:    http://localhost:%d/metadata\n", cfg.Port)
	if cfg.MCP.Enabled {
		fmt.Fprintf(out, "  MCP server:  http://localhost:%d%s\n", cfg.MCP.Port, cfg.MCP.Path)
	}
	fmt.Fprintln(out)
	if cfg.Auth.Enabled() {
		fmt.Fprintln(out, "Bearer authentication is enabled")
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")
}
