package fhir

import "strings"

// Reference is a parsed FHIR literal reference ("Patient/123").
type Reference struct {
	Type string
	ID   string
}

// ParseReference splits a literal reference into type and id.
// Absolute URLs are reduced to their trailing Type/id segments. Returns
// ok=false for values that do not look like a typed reference.
func ParseReference(ref string) (Reference, bool) {
	if ref == "" {
		return Reference{}, false
	}
	// Strip scheme and host from absolute references.
	if i := strings.Index(ref, "://"); i != -1 {
		ref = ref[i+3:]
	}
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) < 2 {
		return Reference{}, false
	}
	typ := parts[len(parts)-2]
	id := parts[len(parts)-1]
	if typ == "" || id == "" {
		return Reference{}, false
	}
	return Reference{Type: typ, ID: id}, true
}

// String renders the reference in Type/id form.
func (r Reference) String() string {
	return r.Type + "/" + r.ID
}

// SubjectReference extracts the subject (or patient) reference string from a
// decoded resource. Returns "" when the resource has neither.
func SubjectReference(resource map[string]any) string {
	for _, field := range []string{"subject", "patient"} {
		if sub, ok := resource[field].(map[string]any); ok {
			if ref, ok := sub["reference"].(string); ok {
				return ref
			}
		}
	}
	return ""
}
