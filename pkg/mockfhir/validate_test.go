package mockfhir

import (
	"testing"
)

func TestValidateResource(t *testing.T) {
	tests := []struct {
		name       string
		resource   map[string]any
		expectType string
		wantErr    bool
	}{
		{
			name:     "minimal valid",
			resource: map[string]any{"resourceType": "Patient"},
		},
		{
			name:       "matching type",
			resource:   map[string]any{"resourceType": "Patient", "id": "p1"},
			expectType: "Patient",
		},
		{
			name:       "mismatched type",
			resource:   map[string]any{"resourceType": "Observation"},
			expectType: "Patient",
			wantErr:    true,
		},
		{
			name:     "missing resourceType",
			resource: map[string]any{"id": "p1"},
			wantErr:  true,
		},
		{
			name:     "empty resourceType",
			resource: map[string]any{"resourceType": ""},
			wantErr:  true,
		},
		{
			name:     "non-string id",
			resource: map[string]any{"resourceType": "Patient", "id": float64(5)},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResource(tt.resource, tt.expectType)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResource() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
