// Package fhir provides the small set of FHIR R4 primitives the mock server
// and client need: OperationOutcome construction, searchset Bundles, reference
// parsing, and capability statements. Resources themselves are handled as
// untyped JSON maps; only the envelope types are modeled.
package fhir

// MimeTypeJSON is the FHIR JSON media type used for all requests and responses.
const MimeTypeJSON = "application/fhir+json"

// Version is the FHIR release advertised in capability statements.
const Version = "4.0.1"

// Issue severities.
const (
	SeverityFatal   = "fatal"
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "information"
)

// Issue codes surfaced by the client and the mock server.
const (
	CodeNotFound     = "not-found"
	CodeSecurity     = "security"
	CodeForbidden    = "forbidden"
	CodeTimeout      = "timeout"
	CodeInvalid      = "invalid"
	CodeException    = "exception"
	CodeNotSupported = "not-supported"
	CodeDuplicate    = "duplicate"
)

// Resource types seeded into the mock server by default.
var DefaultResourceTypes = []string{
	"Patient",
	"Observation",
	"Condition",
	"MedicationRequest",
	"DiagnosticReport",
	"CarePlan",
}

// IssueDetails carries the human-readable text of an issue.
type IssueDetails struct {
	Text string `json:"text,omitempty"`
}

// Issue is a single OperationOutcome issue.
type Issue struct {
	Severity    string       `json:"severity"`
	Code        string       `json:"code"`
	Details     IssueDetails `json:"details,omitempty"`
	Diagnostics string       `json:"diagnostics,omitempty"`
}

// OperationOutcome is the FHIR error envelope.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	Issue        []Issue `json:"issue"`
}

// NewOperationOutcome builds an OperationOutcome with a single issue.
func NewOperationOutcome(severity, code, text string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []Issue{
			{
				Severity: severity,
				Code:     code,
				Details:  IssueDetails{Text: text},
			},
		},
	}
}

// ErrorOutcome builds an error-severity OperationOutcome with a single issue.
func ErrorOutcome(code, text string) *OperationOutcome {
	return NewOperationOutcome(SeverityError, code, text)
}

// OutcomeMap returns the OperationOutcome as a generic JSON map. The client
// returns outcomes in-band as response payloads, so both representations
// are needed.
func OutcomeMap(code, text string) map[string]any {
	return map[string]any{
		"resourceType": "OperationOutcome",
		"issue": []any{
			map[string]any{
				"severity": SeverityError,
				"code":     code,
				"details":  map[string]any{"text": text},
			},
		},
	}
}

// IsOperationOutcome reports whether a decoded JSON payload is an
// OperationOutcome.
func IsOperationOutcome(resource map[string]any) bool {
	rt, _ := resource["resourceType"].(string)
	return rt == "OperationOutcome"
}

// OutcomeIssues extracts the issues from a decoded OperationOutcome map.
// Missing fields degrade to "unknown" rather than erroring, since the
// payload may come from an arbitrary remote server.
func OutcomeIssues(resource map[string]any) []Issue {
	raw, _ := resource["issue"].([]any)
	issues := make([]Issue, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		issue := Issue{Severity: "unknown", Code: "unknown"}
		if s, ok := m["severity"].(string); ok && s != "" {
			issue.Severity = s
		}
		if c, ok := m["code"].(string); ok && c != "" {
			issue.Code = c
		}
		if d, ok := m["details"].(map[string]any); ok {
			if t, ok := d["text"].(string); ok {
				issue.Details.Text = t
			}
		}
		if diag, ok := m["diagnostics"].(string); ok {
			issue.Diagnostics = diag
		}
		issues = append(issues, issue)
	}
	return issues
}

// ResourceTypeOf returns the resourceType of a decoded resource, or "Unknown"
// when absent.
func ResourceTypeOf(resource map[string]any) string {
	if rt, ok := resource["resourceType"].(string); ok && rt != "" {
		return rt
	}
	return "Unknown"
}
