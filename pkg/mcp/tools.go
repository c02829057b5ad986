package mcp

// ToolHandler is the signature for tool execution functions.
type ToolHandler func(args map[string]interface{}, session *Session, server *Server) (*ToolResult, error)

// Tool represents a registered MCP tool.
type Tool struct {
	Definition ToolDefinition
	Handler    ToolHandler
}

// ToolRegistry manages all registered MCP tools.
// Tools are stored in a slice to preserve registration order for tools/list.
type ToolRegistry struct {
	tools  []*Tool
	byName map[string]*Tool
	server *Server
}

// NewToolRegistry creates a new tool registry and registers all built-in tools.
func NewToolRegistry(server *Server) *ToolRegistry {
	r := &ToolRegistry{
		tools:  make([]*Tool, 0, 10),
		byName: make(map[string]*Tool, 10),
		server: server,
	}

	r.registerBuiltinTools()
	return r
}

// registerBuiltinTools registers the FHIR tools from tool_defs.go with their
// handlers.
func (r *ToolRegistry) registerBuiltinTools() {
	handlers := map[string]ToolHandler{
		"get_patient":                   handleGetPatient,
		"search_patients":               handleSearchPatients,
		"search_observations":           handleSearchObservations,
		"search_conditions":             handleSearchConditions,
		"search_medication_requests":    handleSearchMedicationRequests,
		"search_diagnostic_reports":     handleSearchDiagnosticReports,
		"search_care_plans":             handleSearchCarePlans,
		"get_capability_statement":      handleGetCapabilityStatement,
		"find_patients_with_conditions": handleFindPatientsWithConditions,
		"assess_data_quality":           handleAssessDataQuality,
	}

	// Register in definition order (from tool_defs.go) to guarantee
	// consistent ordering in tools/list responses.
	for _, def := range allToolDefinitions() {
		handler, ok := handlers[def.Name]
		if !ok {
			continue
		}
		r.Register(&Tool{
			Definition: def,
			Handler:    handler,
		})
	}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(tool *Tool) {
	r.tools = append(r.tools, tool)
	r.byName[tool.Definition.Name] = tool
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) *Tool {
	return r.byName[name]
}

// List returns all tool definitions in registration order.
func (r *ToolRegistry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	return defs
}

// Execute executes a tool by name.
func (r *ToolRegistry) Execute(name string, args map[string]interface{}, session *Session) (*ToolResult, error) {
	tool := r.byName[name]
	if tool == nil {
		return ToolResultError("tool not found: " + name), nil
	}
	return tool.Handler(args, session, r.server)
}

// =============================================================================
// Argument extraction helpers
// =============================================================================

func getString(args map[string]interface{}, key, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getInt(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return defaultVal
}
