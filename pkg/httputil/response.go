// Package httputil provides shared helpers for writing FHIR JSON responses.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

// WriteFHIR writes data as application/fhir+json with the given status code.
func WriteFHIR(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", fhir.MimeTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteOutcome writes an error OperationOutcome with the given status code.
func WriteOutcome(w http.ResponseWriter, status int, code, message string) {
	WriteFHIR(w, status, fhir.ErrorOutcome(code, message))
}

// WriteResource writes a resource with 200 OK.
func WriteResource(w http.ResponseWriter, resource any) {
	WriteFHIR(w, http.StatusOK, resource)
}

// WriteCreated writes a created resource with 201 and a Location header.
func WriteCreated(w http.ResponseWriter, location string, resource any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteFHIR(w, http.StatusCreated, resource)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteNotFound writes a 404 not-found OperationOutcome.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteOutcome(w, http.StatusNotFound, fhir.CodeNotFound, message)
}

// WriteBadRequest writes a 400 invalid OperationOutcome.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteOutcome(w, http.StatusBadRequest, fhir.CodeInvalid, message)
}

// WriteUnauthorized writes a 401 security OperationOutcome.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteOutcome(w, http.StatusUnauthorized, fhir.CodeSecurity, message)
}

// WriteForbidden writes a 403 forbidden OperationOutcome.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteOutcome(w, http.StatusForbidden, fhir.CodeForbidden, message)
}

// WriteInternalError writes a 500 exception OperationOutcome.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteOutcome(w, http.StatusInternalServerError, fhir.CodeException, message)
}
