package mockfhir

import "fmt"

// NotFoundError indicates a resource id does not exist in a collection.
type NotFoundError struct {
	ResourceType string
	ID           string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s not found", e.ResourceType, e.ID)
}

// ConflictError indicates a create collided with an existing resource id.
type ConflictError struct {
	ResourceType string
	ID           string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s/%s already exists", e.ResourceType, e.ID)
}

// UnknownTypeError indicates a request for a resource type the server does
// not serve.
type UnknownTypeError struct {
	ResourceType string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("resource type %q is not supported", e.ResourceType)
}
