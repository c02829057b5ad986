package mcp

// allToolDefinitions returns all 10 tool definitions in display order.
func allToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Patients
		defGetPatient,
		defSearchPatients,

		// Clinical resources
		defSearchObservations,
		defSearchConditions,
		defSearchMedicationRequests,
		defSearchDiagnosticReports,
		defSearchCarePlans,

		// Server / utility
		defGetCapabilityStatement,
		defFindPatientsWithConditions,
		defAssessDataQuality,
	}
}

// Shared schema fragments. Every tool targets a FHIR server named by
// fhir_base_url and may carry a bearer token.

func baseURLProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "FHIR server base URL (e.g., http://localhost:8945)",
	}
}

func authTokenProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Bearer token for authentication",
	}
}

func countProperty(defaultCount int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Max results per page",
		"minimum":     1,
		"maximum":     1000,
		"default":     defaultCount,
	}
}

var defGetPatient = ToolDefinition{
	Name:        "get_patient",
	Description: "Retrieve a single Patient resource by ID. Returns the Patient as FHIR JSON, or an OperationOutcome when the patient does not exist or the request fails.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient_id": map[string]interface{}{
				"type":        "string",
				"description": "FHIR Patient ID",
			},
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url", "patient_id"},
	},
}

var defSearchPatients = ToolDefinition{
	Name:        "search_patients",
	Description: "Search Patient resources by name or family name. Leave all filters empty to list the first N patients. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Given or family name to match",
			},
			"family": map[string]interface{}{
				"type":        "string",
				"description": "Family name only",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defSearchObservations = ToolDefinition{
	Name:        "search_observations",
	Description: "Query Observation resources (vitals, labs, etc.), optionally scoped to a single patient. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient": map[string]interface{}{
				"type":        "string",
				"description": "Patient ID to scope results",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defSearchConditions = ToolDefinition{
	Name:        "search_conditions",
	Description: "Find Condition resources (diagnoses) by patient, code, or clinical status. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient": map[string]interface{}{
				"type":        "string",
				"description": "Limit to a single patient",
			},
			"code": map[string]interface{}{
				"type":        "string",
				"description": "SNOMED or ICD-10 code",
			},
			"clinical_status": map[string]interface{}{
				"type":        "string",
				"description": "active | resolved | inactive",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defSearchMedicationRequests = ToolDefinition{
	Name:        "search_medication_requests",
	Description: "Query prescribed or planned medications by patient, status, or intent. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient": map[string]interface{}{
				"type":        "string",
				"description": "Patient ID",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"description": "active | completed | stopped | on-hold",
			},
			"intent": map[string]interface{}{
				"type":        "string",
				"description": "order | plan | proposal",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defSearchDiagnosticReports = ToolDefinition{
	Name:        "search_diagnostic_reports",
	Description: "Query lab results, imaging reports, and other diagnostic documents by patient, status, or category. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient": map[string]interface{}{
				"type":        "string",
				"description": "Patient ID",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"description": "final | preliminary | amended",
			},
			"category": map[string]interface{}{
				"type":        "string",
				"description": "LAB | RAD | etc.",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defSearchCarePlans = ToolDefinition{
	Name:        "search_care_plans",
	Description: "Find care plans (treatment plans, pathways) by patient, status, or category. Returns a searchset Bundle.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"patient": map[string]interface{}{
				"type":        "string",
				"description": "Patient ID",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"description": "active | completed | cancelled | draft",
			},
			"category": map[string]interface{}{
				"type":        "string",
				"description": "e.g., diabetes-management | encounter",
			},
			"_count":     countProperty(10),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defGetCapabilityStatement = ToolDefinition{
	Name:        "get_capability_statement",
	Description: "Fetch the server's CapabilityStatement (GET /metadata). Use this to discover which resource types and interactions the server supports.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"auth_token":    authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defFindPatientsWithConditions = ToolDefinition{
	Name:        "find_patients_with_conditions",
	Description: "Return distinct Patient IDs referenced by Condition resources, optionally filtered by condition code. Useful when Patient records are missing but Conditions exist.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"code": map[string]interface{}{
				"type":        "string",
				"description": "Condition code to filter on",
			},
			"_count":     countProperty(100),
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}

var defAssessDataQuality = ToolDefinition{
	Name:        "assess_data_quality",
	Description: "Run a data-quality assessment across resource types (or a single type). Probes each type, validates the responses, and reports a 0-100 quality score per type.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fhir_base_url": baseURLProperty(),
			"resource_type": map[string]interface{}{
				"type":        "string",
				"description": "Limit scan to one resource type",
			},
			"auth_token": authTokenProperty(),
		},
		"required": []string{"fhir_base_url"},
	},
}
