// Package config provides the server configuration file format and loader.
package config

import (
	"fmt"

	"github.com/0bese/fhir-mcp/pkg/mcp"
	"github.com/0bese/fhir-mcp/pkg/mockfhir"
)

// DefaultPort is the default FHIR server port.
const DefaultPort = 8945

// Config is the top-level server configuration, loadable from YAML or JSON.
type Config struct {
	// Port is the TCP port the FHIR server listens on.
	Port int `json:"port" yaml:"port"`

	// Host is the listen address. Empty means all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// ResourceTypes lists the resource types the store serves. Empty uses
	// the built-in clinical set.
	ResourceTypes []string `json:"resourceTypes,omitempty" yaml:"resourceTypes,omitempty"`

	// SeedFiles are JSON or YAML files loaded into the store at startup.
	SeedFiles []string `json:"seedFiles,omitempty" yaml:"seedFiles,omitempty"`

	// Auth configures bearer authentication for the FHIR surface.
	Auth mockfhir.AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`

	// Chaos configures failure injection.
	Chaos mockfhir.ChaosConfig `json:"chaos,omitempty" yaml:"chaos,omitempty"`

	// MCP configures the co-hosted MCP HTTP server.
	MCP mcp.Config `json:"mcp,omitempty" yaml:"mcp,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		MCP:       *mcp.DefaultConfig(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// ApplyDefaults fills zero values with defaults. Called after unmarshaling a
// partial config file.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	def := mcp.DefaultConfig()
	if c.MCP.Port == 0 {
		c.MCP.Port = def.Port
	}
	if c.MCP.Path == "" {
		c.MCP.Path = def.Path
	}
	if c.MCP.FHIRBaseURL == "" {
		c.MCP.FHIRBaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.MCP.AllowedOrigins == nil {
		c.MCP.AllowedOrigins = def.AllowedOrigins
	}
	if c.MCP.SessionTimeout == 0 {
		c.MCP.SessionTimeout = def.SessionTimeout
	}
	if c.MCP.MaxSessions == 0 {
		c.MCP.MaxSessions = def.MaxSessions
	}
	if c.MCP.ReadTimeout == 0 {
		c.MCP.ReadTimeout = def.ReadTimeout
	}
	if c.MCP.WriteTimeout == 0 {
		c.MCP.WriteTimeout = def.WriteTimeout
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Chaos.ErrorRate < 0 || c.Chaos.ErrorRate > 1 {
		return fmt.Errorf("chaos errorRate must be between 0 and 1, got %g", c.Chaos.ErrorRate)
	}
	if c.Chaos.Latency < 0 {
		return fmt.Errorf("chaos latency cannot be negative")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", c.LogFormat)
	}

	if c.MCP.Enabled {
		if err := c.MCP.Validate(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		if c.MCP.Port == c.Port {
			return fmt.Errorf("mcp port %d collides with FHIR port", c.MCP.Port)
		}
	}

	return nil
}

// Address returns the listen address for the FHIR server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
