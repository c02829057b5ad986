package fhir

import "time"

// CapabilityInteraction is a single supported interaction for a resource.
type CapabilityInteraction struct {
	Code string `json:"code"`
}

// CapabilityResource describes one resource type the server supports.
type CapabilityResource struct {
	Type        string                  `json:"type"`
	Interaction []CapabilityInteraction `json:"interaction"`
}

// CapabilityRest is the rest section of a CapabilityStatement.
type CapabilityRest struct {
	Mode     string               `json:"mode"`
	Resource []CapabilityResource `json:"resource"`
}

// CapabilitySoftware identifies the serving software.
type CapabilitySoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CapabilityStatement is the response to GET /metadata.
type CapabilityStatement struct {
	ResourceType string             `json:"resourceType"`
	Status       string             `json:"status"`
	Date         string             `json:"date"`
	Kind         string             `json:"kind"`
	Software     CapabilitySoftware `json:"software"`
	FhirVersion  string             `json:"fhirVersion"`
	Format       []string           `json:"format"`
	Rest         []CapabilityRest   `json:"rest"`
}

// NewCapabilityStatement builds a capability statement advertising full CRUD
// plus search for each resource type.
func NewCapabilityStatement(software, version string, resourceTypes []string) *CapabilityStatement {
	interactions := []CapabilityInteraction{
		{Code: "read"},
		{Code: "create"},
		{Code: "update"},
		{Code: "delete"},
		{Code: "search-type"},
	}

	resources := make([]CapabilityResource, 0, len(resourceTypes))
	for _, rt := range resourceTypes {
		resources = append(resources, CapabilityResource{
			Type:        rt,
			Interaction: interactions,
		})
	}

	return &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format(time.RFC3339),
		Kind:         "instance",
		Software: CapabilitySoftware{
			Name:    software,
			Version: version,
		},
		FhirVersion: Version,
		Format:      []string{"json"},
		Rest: []CapabilityRest{
			{Mode: "server", Resource: resources},
		},
	}
}
