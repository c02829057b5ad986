// Package mockfhir implements an in-memory mock FHIR server for local
// development and testing. Resources are stored as untyped JSON maps grouped
// by resource type; the HTTP surface speaks application/fhir+json and reports
// every failure as an OperationOutcome.
package mockfhir

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/0bese/fhir-mcp/internal/id"
	"github.com/0bese/fhir-mcp/pkg/fhir"
)

// Store holds all resource collections served by the mock server.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewStore creates a store serving the given resource types. With no types,
// the default FHIR set (Patient, Observation, Condition, MedicationRequest,
// DiagnosticReport, CarePlan) is registered.
func NewStore(resourceTypes ...string) *Store {
	if len(resourceTypes) == 0 {
		resourceTypes = fhir.DefaultResourceTypes
	}

	s := &Store{collections: make(map[string]*Collection, len(resourceTypes))}
	for _, rt := range resourceTypes {
		s.collections[rt] = newCollection(rt)
	}
	return s
}

// Register adds a collection for a resource type. Registering an existing
// type is a no-op so seed loading can be idempotent.
func (s *Store) Register(resourceType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[resourceType]; !ok {
		s.collections[resourceType] = newCollection(resourceType)
	}
}

// Collection returns the collection for a resource type, or nil when the
// type is not served.
func (s *Store) Collection(resourceType string) *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[resourceType]
}

// Types returns all served resource types in sorted order.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.collections))
	for rt := range s.collections {
		types = append(types, rt)
	}
	sort.Strings(types)
	return types
}

// Seed loads resources into their collections as seed data, registering
// collections for unseen resource types. Resources without a resourceType
// are rejected.
func (s *Store) Seed(resources []map[string]any) error {
	for i, resource := range resources {
		rt, _ := resource["resourceType"].(string)
		if rt == "" {
			return fmt.Errorf("seed resource at index %d has no resourceType", i)
		}
		s.Register(rt)
		if err := s.Collection(rt).seed(resource); err != nil {
			return fmt.Errorf("seed %s at index %d: %w", rt, i, err)
		}
	}
	return nil
}

// Reset restores a collection (or all collections when resourceType is
// empty) to its seed state. Returns the names of the collections reset.
func (s *Store) Reset(resourceType string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if resourceType != "" {
		c, ok := s.collections[resourceType]
		if !ok {
			return nil, &UnknownTypeError{ResourceType: resourceType}
		}
		c.Reset()
		return []string{resourceType}, nil
	}

	names := make([]string, 0, len(s.collections))
	for rt, c := range s.collections {
		c.Reset()
		names = append(names, rt)
	}
	sort.Strings(names)
	return names, nil
}

// Overview reports the served resource types and item counts.
func (s *Store) Overview() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.collections))
	for rt, c := range s.collections {
		counts[rt] = c.Count()
	}
	return counts
}

// Collection is a single resource type's item set.
type Collection struct {
	mu           sync.RWMutex
	resourceType string
	items        map[string]map[string]any
	seedData     []map[string]any
}

func newCollection(resourceType string) *Collection {
	return &Collection{
		resourceType: resourceType,
		items:        make(map[string]map[string]any),
	}
}

// ResourceType returns the collection's resource type.
func (c *Collection) ResourceType() string {
	return c.resourceType
}

// seed inserts a seed resource and remembers it for Reset.
func (c *Collection) seed(resource map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneResource(resource)
	rid, _ := stored["id"].(string)
	if rid == "" {
		rid = id.New()
		stored["id"] = rid
	}
	if _, exists := c.items[rid]; exists {
		return &ConflictError{ResourceType: c.resourceType, ID: rid}
	}
	ensureMeta(stored, 1)

	c.items[rid] = stored
	c.seedData = append(c.seedData, cloneResource(stored))
	return nil
}

// Get retrieves a resource copy by id, or nil when absent.
func (c *Collection) Get(rid string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[rid]
	if !ok {
		return nil
	}
	return cloneResource(item)
}

// Create inserts a new resource, assigning an id when absent and stamping
// meta. Returns the stored copy.
func (c *Collection) Create(resource map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneResource(resource)
	rid, _ := stored["id"].(string)
	if rid == "" {
		rid = id.New()
		stored["id"] = rid
	}
	if _, exists := c.items[rid]; exists {
		return nil, &ConflictError{ResourceType: c.resourceType, ID: rid}
	}
	ensureMeta(stored, 1)

	c.items[rid] = stored
	return cloneResource(stored), nil
}

// Update replaces an existing resource, bumping meta.versionId. The id in
// the body is overridden by the path id.
func (c *Collection) Update(rid string, resource map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.items[rid]
	if !ok {
		return nil, &NotFoundError{ResourceType: c.resourceType, ID: rid}
	}

	stored := cloneResource(resource)
	stored["id"] = rid
	ensureMeta(stored, versionOf(existing)+1)

	c.items[rid] = stored
	return cloneResource(stored), nil
}

// Delete removes a resource by id.
func (c *Collection) Delete(rid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[rid]; !ok {
		return &NotFoundError{ResourceType: c.resourceType, ID: rid}
	}
	delete(c.items, rid)
	return nil
}

// Search returns the page of resources matching the params and the total
// match count before pagination.
func (c *Collection) Search(params *SearchParams) ([]map[string]any, int) {
	c.mu.RLock()
	all := make([]map[string]any, 0, len(c.items))
	for _, item := range c.items {
		all = append(all, item)
	}
	c.mu.RUnlock()

	matched := make([]map[string]any, 0, len(all))
	for _, item := range all {
		if matchesAll(item, c.resourceType, params.Filters) {
			matched = append(matched, item)
		}
	}

	sortResources(matched, params.Sort, params.Descending)

	total := len(matched)
	start := params.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + params.Count
	if end > total {
		end = total
	}

	page := make([]map[string]any, 0, end-start)
	for _, item := range matched[start:end] {
		page = append(page, cloneResource(item))
	}
	return page, total
}

// Reset restores the collection to its seed data.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]map[string]any, len(c.seedData))
	for _, resource := range c.seedData {
		rid, _ := resource["id"].(string)
		c.items[rid] = cloneResource(resource)
	}
}

// Count returns the number of resources in the collection.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// ensureMeta stamps meta.versionId and meta.lastUpdated on a resource.
func ensureMeta(resource map[string]any, version int) {
	meta, ok := resource["meta"].(map[string]any)
	if !ok {
		meta = make(map[string]any, 2)
		resource["meta"] = meta
	}
	meta["versionId"] = strconv.Itoa(version)
	meta["lastUpdated"] = time.Now().UTC().Format(time.RFC3339)
}

// versionOf reads the integer meta.versionId of a stored resource, defaulting
// to 1 when absent or malformed.
func versionOf(resource map[string]any) int {
	meta, ok := resource["meta"].(map[string]any)
	if !ok {
		return 1
	}
	vs, _ := meta["versionId"].(string)
	v, err := strconv.Atoi(vs)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// cloneResource deep-copies a resource map so callers cannot mutate stored
// state through returned values.
func cloneResource(resource map[string]any) map[string]any {
	out := make(map[string]any, len(resource))
	for k, v := range resource {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneResource(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
