package mockfhir

import (
	"net/url"
	"testing"
)

func TestParseSearchParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		want     SearchParams
		filterOf map[string]string
	}{
		{
			name:  "defaults",
			query: "",
			want:  SearchParams{Count: 10},
		},
		{
			name:  "count and offset",
			query: "_count=50&_offset=20",
			want:  SearchParams{Count: 50, Offset: 20},
		},
		{
			name:  "count clamped to max",
			query: "_count=5000",
			want:  SearchParams{Count: 1000},
		},
		{
			name:  "non numeric count falls back",
			query: "_count=lots",
			want:  SearchParams{Count: 10},
		},
		{
			name:  "negative offset ignored",
			query: "_offset=-5",
			want:  SearchParams{Count: 10},
		},
		{
			name:  "descending sort",
			query: "_sort=-_lastUpdated",
			want:  SearchParams{Count: 10, Sort: "_lastUpdated", Descending: true},
		},
		{
			name:     "filters collected",
			query:    "status=active&patient=p1&_unknown=x",
			want:     SearchParams{Count: 10},
			filterOf: map[string]string{"status": "active", "patient": "p1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := ParseSearchParams(values)

			if got.Count != tt.want.Count || got.Offset != tt.want.Offset ||
				got.Sort != tt.want.Sort || got.Descending != tt.want.Descending {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			for k, v := range tt.filterOf {
				if got.Filters[k] != v {
					t.Errorf("filter %q = %q, want %q", k, got.Filters[k], v)
				}
			}
			if tt.filterOf == nil && len(got.Filters) != 0 {
				t.Errorf("unexpected filters: %v", got.Filters)
			}
		})
	}
}

func conditionResource(id, patientID, code, clinical string) map[string]any {
	return map[string]any{
		"resourceType": "Condition",
		"id":           id,
		"subject":      map[string]any{"reference": "Patient/" + patientID},
		"code": map[string]any{
			"coding": []any{
				map[string]any{"system": "http://snomed.info/sct", "code": code},
			},
			"text": "condition " + code,
		},
		"clinicalStatus": map[string]any{
			"coding": []any{
				map[string]any{"code": clinical},
			},
		},
	}
}

func TestMatchParamReference(t *testing.T) {
	cond := conditionResource("c1", "p1", "44054006", "active")

	tests := []struct {
		name  string
		param string
		value string
		want  bool
	}{
		{"bare id", "patient", "p1", true},
		{"typed reference", "subject", "Patient/p1", true},
		{"wrong id", "patient", "p2", false},
		{"wrong type", "subject", "Group/p1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchParam(cond, "Condition", tt.param, tt.value); got != tt.want {
				t.Errorf("matchParam(%s=%s) = %v, want %v", tt.param, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchParamToken(t *testing.T) {
	cond := conditionResource("c1", "p1", "44054006", "active")
	report := map[string]any{
		"resourceType": "DiagnosticReport",
		"id":           "r1",
		"status":       "final",
		"category": []any{
			map[string]any{
				"coding": []any{map[string]any{"code": "LAB"}},
			},
		},
	}

	tests := []struct {
		name     string
		resource map[string]any
		rt       string
		param    string
		value    string
		want     bool
	}{
		{"code match", cond, "Condition", "code", "44054006", true},
		{"code with system", cond, "Condition", "code", "http://snomed.info/sct|44054006", true},
		{"code text fallback", cond, "Condition", "code", "condition 44054006", true},
		{"code mismatch", cond, "Condition", "code", "999", false},
		{"clinical-status", cond, "Condition", "clinical-status", "active", true},
		{"clinical-status mismatch", cond, "Condition", "clinical-status", "resolved", false},
		{"category in array", report, "DiagnosticReport", "category", "LAB", true},
		{"status primitive", report, "DiagnosticReport", "status", "final", true},
		{"status mismatch", report, "DiagnosticReport", "status", "preliminary", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchParam(tt.resource, tt.rt, tt.param, tt.value); got != tt.want {
				t.Errorf("matchParam(%s=%s) = %v, want %v", tt.param, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchParamHumanName(t *testing.T) {
	patient := map[string]any{
		"resourceType": "Patient",
		"id":           "p1",
		"name": []any{
			map[string]any{"family": "Chalmers", "given": []any{"Peter", "James"}},
		},
	}

	tests := []struct {
		param string
		value string
		want  bool
	}{
		{"name", "chalmers", true},
		{"name", "peter", true},
		{"name", "chal", true}, // substring
		{"family", "Chalmers", true},
		{"family", "Peter", false},
		{"given", "james", true},
		{"given", "Chalmers", false},
		{"name", "nobody", false},
	}
	for _, tt := range tests {
		t.Run(tt.param+"="+tt.value, func(t *testing.T) {
			if got := matchParam(patient, "Patient", tt.param, tt.value); got != tt.want {
				t.Errorf("matchParam(%s=%s) = %v, want %v", tt.param, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchFieldDottedPath(t *testing.T) {
	obs := map[string]any{
		"resourceType": "Observation",
		"id":           "o1",
		"valueQuantity": map[string]any{
			"value": 7.2,
			"unit":  "mmol/L",
		},
	}

	if !matchParam(obs, "Observation", "valueQuantity.unit", "mmol/L") {
		t.Error("dotted path match failed")
	}
	if matchParam(obs, "Observation", "valueQuantity.unit", "mg/dL") {
		t.Error("dotted path mismatch matched")
	}
}

func TestCollectionSearchPagingAndSort(t *testing.T) {
	c := NewStore("Patient").Collection("Patient")
	for _, id := range []string{"c", "a", "b", "d", "e"} {
		if _, err := c.Create(patientResource(id, "Fam"+id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	params := &SearchParams{Count: 2, Offset: 0, Filters: map[string]string{}}
	page, total := c.Search(params)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 2 || page[0]["id"] != "a" || page[1]["id"] != "b" {
		t.Errorf("page ids = %v,%v (want a,b)", page[0]["id"], page[1]["id"])
	}

	params.Offset = 4
	page, _ = c.Search(params)
	if len(page) != 1 || page[0]["id"] != "e" {
		t.Errorf("last page = %v", page)
	}

	params = &SearchParams{Count: 5, Descending: true, Filters: map[string]string{}}
	page, _ = c.Search(params)
	if page[0]["id"] != "e" {
		t.Errorf("descending first id = %v, want e", page[0]["id"])
	}
}

func TestCollectionSearchFilters(t *testing.T) {
	c := NewStore("Condition").Collection("Condition")
	seed := []map[string]any{
		conditionResource("c1", "p1", "44054006", "active"),
		conditionResource("c2", "p1", "38341003", "resolved"),
		conditionResource("c3", "p2", "44054006", "active"),
	}
	for _, r := range seed {
		if _, err := c.Create(r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	params := &SearchParams{Count: 10, Filters: map[string]string{"patient": "p1", "code": "44054006"}}
	page, total := c.Search(params)
	if total != 1 || len(page) != 1 {
		t.Fatalf("total = %d, page = %d, want 1/1", total, len(page))
	}
	if page[0]["id"] != "c1" {
		t.Errorf("matched id = %v, want c1", page[0]["id"])
	}
}
