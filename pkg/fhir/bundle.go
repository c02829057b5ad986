package fhir

// Bundle link relations.
const (
	LinkSelf = "self"
	LinkNext = "next"
)

// Link is a Bundle navigation link.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Entry is a single Bundle entry wrapping a resource.
type Entry struct {
	FullURL  string         `json:"fullUrl,omitempty"`
	Resource map[string]any `json:"resource,omitempty"`
}

// Bundle is a FHIR searchset Bundle. Only the fields the mock server emits
// and the client inspects are modeled.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Total        int     `json:"total"`
	Link         []Link  `json:"link,omitempty"`
	Entry        []Entry `json:"entry,omitempty"`
}

// NewSearchSet builds an empty searchset Bundle with the given total.
func NewSearchSet(total int) *Bundle {
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        total,
	}
}

// AddEntry appends a resource entry with the given fullUrl.
func (b *Bundle) AddEntry(fullURL string, resource map[string]any) {
	b.Entry = append(b.Entry, Entry{FullURL: fullURL, Resource: resource})
}

// AddLink appends a navigation link.
func (b *Bundle) AddLink(relation, url string) {
	b.Link = append(b.Link, Link{Relation: relation, URL: url})
}

// IsBundle reports whether a decoded JSON payload is a Bundle.
func IsBundle(resource map[string]any) bool {
	return ResourceTypeOf(resource) == "Bundle"
}

// BundleEntries returns the entry resources of a decoded Bundle map.
// Entries without a resource are skipped.
func BundleEntries(bundle map[string]any) []map[string]any {
	raw, _ := bundle["entry"].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if res, ok := m["resource"].(map[string]any); ok {
			entries = append(entries, res)
		}
	}
	return entries
}

// BundleTotal returns the total of a decoded Bundle map, tolerating both
// float64 (JSON default) and int representations.
func BundleTotal(bundle map[string]any) int {
	switch n := bundle["total"].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// HasNextLink reports whether a decoded Bundle map carries a next-page link.
func HasNextLink(bundle map[string]any) bool {
	links, _ := bundle["link"].([]any)
	for _, l := range links {
		m, ok := l.(map[string]any)
		if !ok {
			continue
		}
		if rel, _ := m["relation"].(string); rel == LinkNext {
			return true
		}
	}
	return false
}
