package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

func outcomeCode(t *testing.T, resource map[string]any) string {
	t.Helper()
	require.True(t, fhir.IsOperationOutcome(resource), "expected OperationOutcome, got %v", resource)
	issues := fhir.OutcomeIssues(resource)
	require.NotEmpty(t, issues)
	return issues[0].Code
}

func TestDoStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"not found", http.StatusNotFound, "", fhir.CodeNotFound},
		{"unauthorized", http.StatusUnauthorized, "", fhir.CodeSecurity},
		{"forbidden", http.StatusForbidden, "", fhir.CodeForbidden},
		{"server error", http.StatusInternalServerError, "", fhir.CodeException},
		{"bad json", http.StatusOK, "{not json", fhir.CodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got := New(srv.URL).GetPatient(context.Background(), "p1")
			assert.Equal(t, tt.wantCode, outcomeCode(t, got))
		})
	}
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(20*time.Millisecond))
	got := c.GetPatient(context.Background(), "p1")
	assert.Equal(t, fhir.CodeTimeout, outcomeCode(t, got))
}

func TestDoConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	got := New(srv.URL).GetPatient(context.Background(), "p1")
	assert.Equal(t, fhir.CodeException, outcomeCode(t, got))
}

func TestDoRequestHeaders(t *testing.T) {
	var gotAccept, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"resourceType": "Patient", "id": "p1"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("tok-123"))
	got := c.GetPatient(context.Background(), "p1")

	assert.Equal(t, "p1", got["id"])
	assert.Equal(t, fhir.MimeTypeJSON, gotAccept)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestSearchParamConstruction(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{"resourceType": "Bundle", "type": "searchset", "total": 0})
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func()
		wantPath string
		want     map[string]string
	}{
		{
			name:     "patients default count",
			call:     func() { c.SearchPatients(ctx, PatientSearch{Name: "smith"}) },
			wantPath: "/Patient",
			want:     map[string]string{"_count": "10", "name": "smith"},
		},
		{
			name:     "observations scoped to patient",
			call:     func() { c.SearchObservations(ctx, ObservationSearch{Patient: "p1", Count: 25}) },
			wantPath: "/Observation",
			want:     map[string]string{"_count": "25", "patient": "p1"},
		},
		{
			name: "conditions with code and status",
			call: func() {
				c.SearchConditions(ctx, ConditionSearch{Patient: "p1", Code: "44054006", ClinicalStatus: "active"})
			},
			wantPath: "/Condition",
			want:     map[string]string{"patient": "p1", "code": "44054006", "clinical-status": "active"},
		},
		{
			name:     "medication requests",
			call:     func() { c.SearchMedicationRequests(ctx, MedicationRequestSearch{Status: "active", Intent: "order"}) },
			wantPath: "/MedicationRequest",
			want:     map[string]string{"status": "active", "intent": "order"},
		},
		{
			name:     "diagnostic reports",
			call:     func() { c.SearchDiagnosticReports(ctx, ReportSearch{Category: "LAB"}) },
			wantPath: "/DiagnosticReport",
			want:     map[string]string{"category": "LAB"},
		},
		{
			name:     "care plans",
			call:     func() { c.SearchCarePlans(ctx, ReportSearch{Status: "active"}) },
			wantPath: "/CarePlan",
			want:     map[string]string{"status": "active"},
		},
		{
			name:     "count clamped to max",
			call:     func() { c.SearchPatients(ctx, PatientSearch{Count: 99999}) },
			wantPath: "/Patient",
			want:     map[string]string{"_count": "1000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call()
			assert.Equal(t, tt.wantPath, gotPath)
			for k, v := range tt.want {
				assert.Equal(t, v, gotQuery.Get(k), "param %s", k)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/metadata", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"resourceType": "CapabilityStatement"})
	}))
	defer srv.Close()

	got := New(srv.URL).Metadata(context.Background())
	assert.Equal(t, "CapabilityStatement", got["resourceType"])
}

func TestFindPatientsWithConditions(t *testing.T) {
	bundle := map[string]any{
		"resourceType": "Bundle",
		"type":         "searchset",
		"total":        4,
		"entry": []any{
			map[string]any{"resource": map[string]any{
				"resourceType": "Condition",
				"subject":      map[string]any{"reference": "Patient/p2"},
			}},
			map[string]any{"resource": map[string]any{
				"resourceType": "Condition",
				"subject":      map[string]any{"reference": "Patient/p1"},
			}},
			map[string]any{"resource": map[string]any{
				"resourceType": "Condition",
				"subject":      map[string]any{"reference": "Patient/p1"},
			}},
			map[string]any{"resource": map[string]any{
				"resourceType": "Condition",
				"subject":      map[string]any{"reference": "Group/g1"},
			}},
		},
	}

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(bundle)
	}))
	defer srv.Close()

	ids := New(srv.URL).FindPatientsWithConditions(context.Background(), "44054006", 0)
	assert.Equal(t, []string{"p1", "p2"}, ids)
	assert.Equal(t, "100", gotQuery.Get("_count"), "default count for this scan is 100")
	assert.Equal(t, "44054006", gotQuery.Get("code"))
}

func TestFindPatientsWithConditionsOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ids := New(srv.URL).FindPatientsWithConditions(context.Background(), "", 10)
	assert.Empty(t, ids)
}
