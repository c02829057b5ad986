package mcp

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/0bese/fhir-mcp/pkg/fhir"
	"github.com/0bese/fhir-mcp/pkg/mockfhir"
)

// ResourceProvider exposes the embedded mock FHIR server's state as MCP
// resources. Without an attached store only the config resource is served.
type ResourceProvider struct {
	config *Config
	store  *mockfhir.Store
}

// NewResourceProvider creates a new resource provider.
func NewResourceProvider(cfg *Config, store *mockfhir.Store) *ResourceProvider {
	return &ResourceProvider{
		config: cfg,
		store:  store,
	}
}

// List returns all available resources.
func (p *ResourceProvider) List() []ResourceDefinition {
	resources := make([]ResourceDefinition, 0)

	if p.store != nil {
		resources = append(resources, ResourceDefinition{
			URI:         "fhir://server/capability",
			Name:        "Capability Statement",
			Description: "CapabilityStatement of the embedded mock FHIR server",
			MimeType:    fhir.MimeTypeJSON,
		})

		resources = append(resources, ResourceDefinition{
			URI:         "fhir://server/resources",
			Name:        "Resource Overview",
			Description: "Per-type resource counts in the mock FHIR store",
			MimeType:    "application/json",
		})

		for _, rt := range p.store.Types() {
			count := 0
			if c := p.store.Collection(rt); c != nil {
				count = c.Count()
			}
			resources = append(resources, ResourceDefinition{
				URI:         "fhir://server/resources/" + rt,
				Name:        rt,
				Description: rt + " collection (" + strconv.Itoa(count) + " items)",
				MimeType:    fhir.MimeTypeJSON,
			})
		}
	}

	resources = append(resources, ResourceDefinition{
		URI:         "fhir://server/config",
		Name:        "Server Configuration",
		Description: "MCP server configuration and default FHIR endpoint",
		MimeType:    "application/json",
	})

	return resources
}

// Read reads the contents of a resource.
func (p *ResourceProvider) Read(uri string) ([]ResourceContent, *JSONRPCError) {
	if !strings.HasPrefix(uri, "fhir://server/") {
		return nil, ResourceNotFoundError(uri)
	}
	rest := strings.TrimPrefix(uri, "fhir://server/")

	switch {
	case rest == "capability":
		return p.readCapability()
	case rest == "resources":
		return p.readOverview()
	case strings.HasPrefix(rest, "resources/"):
		return p.readCollection(strings.TrimPrefix(rest, "resources/"))
	case rest == "config":
		return p.readConfig()
	default:
		return nil, ResourceNotFoundError(uri)
	}
}

// readCapability serves the embedded server's capability statement.
func (p *ResourceProvider) readCapability() ([]ResourceContent, *JSONRPCError) {
	if p.store == nil {
		return nil, ResourceNotFoundError("fhir://server/capability")
	}

	cs := fhir.NewCapabilityStatement(ServerName, ServerVersion, p.store.Types())
	text, err := json.Marshal(cs)
	if err != nil {
		return nil, InternalError(err)
	}
	return []ResourceContent{
		{
			URI:      "fhir://server/capability",
			MimeType: fhir.MimeTypeJSON,
			Text:     string(text),
		},
	}, nil
}

// readOverview serves per-type resource counts.
func (p *ResourceProvider) readOverview() ([]ResourceContent, *JSONRPCError) {
	if p.store == nil {
		return nil, ResourceNotFoundError("fhir://server/resources")
	}

	text, err := json.Marshal(p.store.Overview())
	if err != nil {
		return nil, InternalError(err)
	}
	return []ResourceContent{
		{
			URI:      "fhir://server/resources",
			MimeType: "application/json",
			Text:     string(text),
		},
	}, nil
}

// readCollection serves a whole collection as a searchset Bundle.
func (p *ResourceProvider) readCollection(resourceType string) ([]ResourceContent, *JSONRPCError) {
	uri := "fhir://server/resources/" + resourceType
	if p.store == nil {
		return nil, ResourceNotFoundError(uri)
	}

	collection := p.store.Collection(resourceType)
	if collection == nil {
		return nil, ResourceNotFoundError(uri)
	}

	items, total := collection.Search(&mockfhir.SearchParams{
		Count:   mockfhir.MaxSearchCount,
		Filters: map[string]string{},
	})
	bundle := fhir.NewSearchSet(total)
	for _, resource := range items {
		rid, _ := resource["id"].(string)
		bundle.AddEntry(resourceType+"/"+rid, resource)
	}

	text, err := json.Marshal(bundle)
	if err != nil {
		return nil, InternalError(err)
	}
	return []ResourceContent{
		{
			URI:      uri,
			MimeType: fhir.MimeTypeJSON,
			Text:     string(text),
		},
	}, nil
}

// readConfig serves the MCP server configuration. The auth token is
// intentionally omitted to prevent credential leakage.
func (p *ResourceProvider) readConfig() ([]ResourceContent, *JSONRPCError) {
	content := map[string]interface{}{
		"version":     ServerVersion,
		"fhirBaseUrl": p.config.FHIRBaseURL,
	}
	if p.store != nil {
		content["resourceTypes"] = p.store.Types()
	}

	text, err := json.Marshal(content)
	if err != nil {
		return nil, InternalError(err)
	}
	return []ResourceContent{
		{
			URI:      "fhir://server/config",
			MimeType: "application/json",
			Text:     string(text),
		},
	}, nil
}
