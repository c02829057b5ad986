package mockfhir

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceSchema is the minimal structural contract every stored resource
// must satisfy. Deep profile validation is out of scope for a mock server;
// this catches the malformed payloads that would otherwise corrupt search
// and meta handling.
const resourceSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["resourceType"],
  "properties": {
    "resourceType": {"type": "string", "minLength": 1},
    "id": {"type": "string", "minLength": 1},
    "meta": {
      "type": "object",
      "properties": {
        "versionId": {"type": "string"},
        "lastUpdated": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledResourceSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("resource.schema.json", strings.NewReader(resourceSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("resource.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateResource checks a decoded resource against the structural schema
// and, when expectType is non-empty, that its resourceType matches.
func ValidateResource(resource map[string]any, expectType string) error {
	schema, err := compiledResourceSchema()
	if err != nil {
		return fmt.Errorf("resource schema unavailable: %w", err)
	}

	if err := schema.Validate(map[string]any(resource)); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("invalid resource: %s", leafMessage(ve))
		}
		return fmt.Errorf("invalid resource: %w", err)
	}

	if expectType != "" {
		rt, _ := resource["resourceType"].(string)
		if rt != expectType {
			return fmt.Errorf("resourceType %q does not match endpoint %q", rt, expectType)
		}
	}
	return nil
}

// leafMessage walks to the most specific validation cause.
func leafMessage(err *jsonschema.ValidationError) string {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	if err.InstanceLocation != "" {
		return fmt.Sprintf("%s: %s", err.InstanceLocation, err.Message)
	}
	return err.Message
}
