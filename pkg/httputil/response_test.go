package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

func TestWriteFHIRSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFHIR(rec, http.StatusOK, map[string]any{"resourceType": "Patient"})

	if got := rec.Header().Get("Content-Type"); got != fhir.MimeTypeJSON {
		t.Errorf("Content-Type = %q, want %q", got, fhir.MimeTypeJSON)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWriteOutcomeShapes(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "gone") }, 404, fhir.CodeNotFound},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "nope") }, 400, fhir.CodeInvalid},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "auth") }, 401, fhir.CodeSecurity},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "denied") }, 403, fhir.CodeForbidden},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "boom") }, 500, fhir.CodeException},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var oo fhir.OperationOutcome
			if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if oo.ResourceType != "OperationOutcome" {
				t.Errorf("resourceType = %q", oo.ResourceType)
			}
			if len(oo.Issue) != 1 || oo.Issue[0].Code != tt.wantCode {
				t.Errorf("issue = %+v, want code %q", oo.Issue, tt.wantCode)
			}
		})
	}
}

func TestWriteCreatedSetsLocation(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCreated(rec, "/Patient/abc", map[string]any{"resourceType": "Patient", "id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/Patient/abc" {
		t.Errorf("Location = %q", got)
	}
}
