package mockfhir

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

// Search pagination bounds, matching the tool surface contract.
const (
	DefaultSearchCount = 10
	MaxSearchCount     = 1000
)

// SearchParams is a parsed FHIR search query.
type SearchParams struct {
	// Count is the page size (1..MaxSearchCount).
	Count int
	// Offset is the number of matches to skip.
	Offset int
	// Sort is the sort field ("" sorts by id for deterministic paging).
	Sort string
	// Descending reverses the sort order.
	Descending bool
	// Filters are the remaining search parameters.
	Filters map[string]string
}

// ParseSearchParams extracts pagination, sorting, and filters from query
// values. Underscore-prefixed control params are consumed; everything else
// becomes a filter. Repeated params keep the first value.
func ParseSearchParams(values url.Values) *SearchParams {
	p := &SearchParams{
		Count:   DefaultSearchCount,
		Filters: make(map[string]string),
	}

	for key, vals := range values {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		value := vals[0]

		switch key {
		case "_count":
			if n, err := strconv.Atoi(value); err == nil {
				p.Count = n
			}
		case "_offset":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				p.Offset = n
			}
		case "_sort":
			if strings.HasPrefix(value, "-") {
				p.Descending = true
				value = value[1:]
			}
			p.Sort = value
		default:
			if strings.HasPrefix(key, "_") {
				// Unsupported control params are ignored rather than rejected,
				// mirroring the lenient behavior of common FHIR servers.
				continue
			}
			p.Filters[key] = value
		}
	}

	if p.Count < 1 {
		p.Count = DefaultSearchCount
	}
	if p.Count > MaxSearchCount {
		p.Count = MaxSearchCount
	}
	return p
}

// matchesAll reports whether a resource satisfies every filter.
func matchesAll(resource map[string]any, resourceType string, filters map[string]string) bool {
	for name, value := range filters {
		if !matchParam(resource, resourceType, name, value) {
			return false
		}
	}
	return true
}

// matchParam evaluates a single search parameter against a resource.
func matchParam(resource map[string]any, resourceType, name, value string) bool {
	switch name {
	case "_id":
		rid, _ := resource["id"].(string)
		return rid == value

	case "patient", "subject":
		return matchReference(resource, value)

	case "name":
		if resourceType == "Patient" {
			return matchHumanName(resource, value, true, true)
		}
	case "family":
		if resourceType == "Patient" {
			return matchHumanName(resource, value, true, false)
		}
	case "given":
		if resourceType == "Patient" {
			return matchHumanName(resource, value, false, true)
		}

	case "code":
		return matchToken(resource, "code", value)
	case "category":
		return matchToken(resource, "category", value)
	case "clinical-status":
		return matchToken(resource, "clinicalStatus", value)
	case "verification-status":
		return matchToken(resource, "verificationStatus", value)

	case "status", "intent":
		s, _ := resource[name].(string)
		return s == value
	}

	return matchField(resource, name, value)
}

// matchReference compares a resource's subject/patient reference against a
// search value, accepting both bare ids and Type/id forms.
func matchReference(resource map[string]any, value string) bool {
	ref := fhir.SubjectReference(resource)
	if ref == "" {
		return false
	}
	parsed, ok := fhir.ParseReference(ref)
	if !ok {
		return ref == value
	}
	if want, ok := fhir.ParseReference(value); ok {
		return parsed == want
	}
	return parsed.ID == value
}

// matchHumanName scans the Patient name array for a case-insensitive
// substring match on family and/or given names.
func matchHumanName(resource map[string]any, value string, family, given bool) bool {
	needle := strings.ToLower(value)
	names, _ := resource["name"].([]any)

	for _, n := range names {
		name, ok := n.(map[string]any)
		if !ok {
			continue
		}
		if family {
			if fam, _ := name["family"].(string); fam != "" {
				if strings.Contains(strings.ToLower(fam), needle) {
					return true
				}
			}
		}
		if given {
			givens, _ := name["given"].([]any)
			for _, g := range givens {
				if gs, ok := g.(string); ok && strings.Contains(strings.ToLower(gs), needle) {
					return true
				}
			}
		}
	}
	return false
}

// matchToken evaluates a token search parameter against a CodeableConcept
// field. Coded values at any depth are collected with a JSONPath descent so
// both single concepts (Condition.code) and concept arrays
// (DiagnosticReport.category) are handled. A "system|code" value matches on
// its code part; concept text is accepted as a fallback.
func matchToken(resource map[string]any, field, value string) bool {
	if i := strings.LastIndex(value, "|"); i != -1 {
		value = value[i+1:]
	}

	target, ok := resource[field]
	if !ok {
		return false
	}

	// Primitive coded fields (e.g. a plain status string).
	if s, ok := target.(string); ok {
		return s == value
	}

	codes, err := jp.ParseString("$." + field + "..code")
	if err != nil {
		return false
	}
	for _, got := range codes.Get(resource) {
		if s, ok := got.(string); ok && s == value {
			return true
		}
	}

	texts, err := jp.ParseString("$." + field + "..text")
	if err != nil {
		return false
	}
	for _, got := range texts.Get(resource) {
		if s, ok := got.(string); ok && strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}

// matchField compares a plain parameter against a resource field. Dotted
// names are evaluated as JSONPath expressions; everything else is a
// top-level exact match.
func matchField(resource map[string]any, name, value string) bool {
	if strings.Contains(name, ".") {
		expr, err := jp.ParseString("$." + name)
		if err != nil {
			return false
		}
		for _, got := range expr.Get(resource) {
			if fmt.Sprintf("%v", got) == value {
				return true
			}
		}
		return false
	}

	got, ok := resource[name]
	if !ok {
		return false
	}
	return fmt.Sprintf("%v", got) == value
}

// sortResources orders resources by the given field. An empty field sorts by
// id so paging is deterministic; "_lastUpdated" sorts by meta.lastUpdated.
func sortResources(items []map[string]any, field string, descending bool) {
	key := func(resource map[string]any) string {
		switch field {
		case "", "_id", "id":
			rid, _ := resource["id"].(string)
			return rid
		case "_lastUpdated":
			if meta, ok := resource["meta"].(map[string]any); ok {
				if lu, ok := meta["lastUpdated"].(string); ok {
					return lu
				}
			}
			return ""
		default:
			if v, ok := resource[field]; ok {
				return fmt.Sprintf("%v", v)
			}
			return ""
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		less := key(items[i]) < key(items[j])
		if descending {
			return !less
		}
		return less
	})
}
