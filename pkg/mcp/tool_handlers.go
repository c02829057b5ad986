package mcp

import (
	"context"

	"github.com/0bese/fhir-mcp/pkg/client"
)

// toolClient builds a FHIR client for a tool call. The base URL and token
// come from the arguments, falling back to the server's configured defaults.
// Returns nil when no base URL is available at all.
func toolClient(args map[string]interface{}, server *Server) *client.Client {
	baseURL := getString(args, "fhir_base_url", server.config.FHIRBaseURL)
	if baseURL == "" {
		return nil
	}

	token := getString(args, "auth_token", server.config.AuthToken)
	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(baseURL, opts...)
}

// forward marshals a FHIR payload into a tool result. The payload may be a
// resource, a Bundle, or an in-band OperationOutcome; all are returned as
// JSON text so the caller sees exactly what the server said.
func forward(payload interface{}) (*ToolResult, error) {
	result, err := ToolResultJSON(payload)
	if err != nil {
		return ToolResultError("failed to encode response: " + err.Error()), nil
	}
	return result, nil
}

func handleGetPatient(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	patientID := getString(args, "patient_id", "")
	if patientID == "" {
		return ToolResultError("patient_id is required"), nil
	}

	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.GetPatient(context.Background(), patientID))
}

func handleSearchPatients(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchPatients(context.Background(), client.PatientSearch{
		Name:   getString(args, "name", ""),
		Family: getString(args, "family", ""),
		Count:  getInt(args, "_count", client.DefaultCount),
	}))
}

func handleSearchObservations(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchObservations(context.Background(), client.ObservationSearch{
		Patient: getString(args, "patient", ""),
		Count:   getInt(args, "_count", client.DefaultCount),
	}))
}

func handleSearchConditions(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchConditions(context.Background(), client.ConditionSearch{
		Patient:        getString(args, "patient", ""),
		Code:           getString(args, "code", ""),
		ClinicalStatus: getString(args, "clinical_status", ""),
		Count:          getInt(args, "_count", client.DefaultCount),
	}))
}

func handleSearchMedicationRequests(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchMedicationRequests(context.Background(), client.MedicationRequestSearch{
		Patient: getString(args, "patient", ""),
		Status:  getString(args, "status", ""),
		Intent:  getString(args, "intent", ""),
		Count:   getInt(args, "_count", client.DefaultCount),
	}))
}

func handleSearchDiagnosticReports(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchDiagnosticReports(context.Background(), client.ReportSearch{
		Patient:  getString(args, "patient", ""),
		Status:   getString(args, "status", ""),
		Category: getString(args, "category", ""),
		Count:    getInt(args, "_count", client.DefaultCount),
	}))
}

func handleSearchCarePlans(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.SearchCarePlans(context.Background(), client.ReportSearch{
		Patient:  getString(args, "patient", ""),
		Status:   getString(args, "status", ""),
		Category: getString(args, "category", ""),
		Count:    getInt(args, "_count", client.DefaultCount),
	}))
}

func handleGetCapabilityStatement(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.Metadata(context.Background()))
}

func handleFindPatientsWithConditions(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	ids := c.FindPatientsWithConditions(
		context.Background(),
		getString(args, "code", ""),
		getInt(args, "_count", 100),
	)
	return forward(ids)
}

func handleAssessDataQuality(args map[string]interface{}, _ *Session, server *Server) (*ToolResult, error) {
	c := toolClient(args, server)
	if c == nil {
		return ToolResultError("fhir_base_url is required"), nil
	}

	return forward(c.AssessDataQuality(context.Background(), getString(args, "resource_type", "")))
}
