package fhir

import (
	"encoding/json"
	"testing"
)

func TestNewOperationOutcome(t *testing.T) {
	oo := ErrorOutcome(CodeNotFound, "Resource not found")

	if oo.ResourceType != "OperationOutcome" {
		t.Errorf("resourceType = %q, want OperationOutcome", oo.ResourceType)
	}
	if len(oo.Issue) != 1 {
		t.Fatalf("issue count = %d, want 1", len(oo.Issue))
	}
	issue := oo.Issue[0]
	if issue.Severity != SeverityError {
		t.Errorf("severity = %q, want error", issue.Severity)
	}
	if issue.Code != CodeNotFound {
		t.Errorf("code = %q, want not-found", issue.Code)
	}
	if issue.Details.Text != "Resource not found" {
		t.Errorf("details text = %q", issue.Details.Text)
	}
}

func TestOutcomeMapRoundTrip(t *testing.T) {
	m := OutcomeMap(CodeTimeout, "Request timed out")

	if !IsOperationOutcome(m) {
		t.Fatal("OutcomeMap result not recognized as OperationOutcome")
	}

	// Simulate a wire round trip so nested types become the generic JSON shapes.
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	issues := OutcomeIssues(decoded)
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Code != CodeTimeout {
		t.Errorf("code = %q, want timeout", issues[0].Code)
	}
	if issues[0].Details.Text != "Request timed out" {
		t.Errorf("details = %q", issues[0].Details.Text)
	}
}

func TestOutcomeIssuesDegradesGracefully(t *testing.T) {
	decoded := map[string]any{
		"resourceType": "OperationOutcome",
		"issue": []any{
			map[string]any{}, // no severity, code, or details
			"not-a-map",      // skipped entirely
		},
	}

	issues := OutcomeIssues(decoded)
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != "unknown" || issues[0].Code != "unknown" {
		t.Errorf("got severity=%q code=%q, want unknown/unknown", issues[0].Severity, issues[0].Code)
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		want   Reference
		wantOK bool
	}{
		{"relative", "Patient/123", Reference{"Patient", "123"}, true},
		{"absolute", "https://fhir.example.com/base/Patient/abc", Reference{"Patient", "abc"}, true},
		{"leading slash", "/Patient/123", Reference{"Patient", "123"}, true},
		{"bare id", "123", Reference{}, false},
		{"empty", "", Reference{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseReference(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSubjectReference(t *testing.T) {
	cond := map[string]any{
		"resourceType": "Condition",
		"subject":      map[string]any{"reference": "Patient/p1"},
	}
	if got := SubjectReference(cond); got != "Patient/p1" {
		t.Errorf("subject = %q, want Patient/p1", got)
	}

	med := map[string]any{
		"resourceType": "MedicationRequest",
		"patient":      map[string]any{"reference": "Patient/p2"},
	}
	if got := SubjectReference(med); got != "Patient/p2" {
		t.Errorf("patient = %q, want Patient/p2", got)
	}

	if got := SubjectReference(map[string]any{}); got != "" {
		t.Errorf("empty resource subject = %q, want empty", got)
	}
}

func TestBundleHelpers(t *testing.T) {
	b := NewSearchSet(25)
	b.AddEntry("http://localhost/Patient/1", map[string]any{"resourceType": "Patient", "id": "1"})
	b.AddLink(LinkSelf, "http://localhost/Patient?_count=10")
	b.AddLink(LinkNext, "http://localhost/Patient?_count=10&_offset=10")

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !IsBundle(decoded) {
		t.Error("decoded bundle not recognized")
	}
	if got := BundleTotal(decoded); got != 25 {
		t.Errorf("total = %d, want 25", got)
	}
	if !HasNextLink(decoded) {
		t.Error("next link not detected")
	}
	entries := BundleEntries(decoded)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if ResourceTypeOf(entries[0]) != "Patient" {
		t.Errorf("entry type = %q, want Patient", ResourceTypeOf(entries[0]))
	}
}

func TestNewCapabilityStatement(t *testing.T) {
	cs := NewCapabilityStatement("fhir-mcp", "0.1.0", []string{"Patient", "Observation"})

	if cs.ResourceType != "CapabilityStatement" {
		t.Errorf("resourceType = %q", cs.ResourceType)
	}
	if cs.FhirVersion != Version {
		t.Errorf("fhirVersion = %q, want %q", cs.FhirVersion, Version)
	}
	if len(cs.Rest) != 1 || len(cs.Rest[0].Resource) != 2 {
		t.Fatalf("unexpected rest shape: %+v", cs.Rest)
	}
	if cs.Rest[0].Resource[0].Type != "Patient" {
		t.Errorf("first resource = %q, want Patient", cs.Rest[0].Resource[0].Type)
	}
	if len(cs.Rest[0].Resource[0].Interaction) != 5 {
		t.Errorf("interactions = %d, want 5", len(cs.Rest[0].Resource[0].Interaction))
	}
}
