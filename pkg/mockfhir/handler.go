package mockfhir

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/0bese/fhir-mcp/pkg/fhir"
	"github.com/0bese/fhir-mcp/pkg/httputil"
	"github.com/0bese/fhir-mcp/pkg/logging"
)

// MaxBodyBytes caps request bodies for create and update.
const MaxBodyBytes = 1 << 20 // 1MB

// Handler serves the FHIR REST surface over a Store.
type Handler struct {
	store    *Store
	auth     *AuthConfig
	chaos    *chaos
	log      *slog.Logger
	software string
	version  string
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuth enables bearer authentication.
func WithAuth(auth *AuthConfig) Option {
	return func(h *Handler) { h.auth = auth }
}

// WithChaos enables failure injection.
func WithChaos(cfg ChaosConfig) Option {
	return func(h *Handler) {
		if cfg.Enabled() {
			h.chaos = newChaos(cfg)
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSoftware sets the software name and version advertised in the
// capability statement.
func WithSoftware(name, version string) Option {
	return func(h *Handler) {
		h.software = name
		h.version = version
	}
}

// NewHandler creates the FHIR REST handler for a store.
func NewHandler(store *Store, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		log:      logging.Nop(),
		software: "fhir-mcp",
		version:  "dev",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store returns the handler's backing store.
func (h *Handler) Store() *Store {
	return h.store
}

// ServeHTTP routes FHIR REST requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.chaos != nil && h.chaos.intercept() {
		h.log.Debug("chaos fault injected", "method", r.Method, "path", r.URL.Path)
		httputil.WriteInternalError(w, "Injected fault")
		return
	}

	path := strings.Trim(r.URL.Path, "/")

	// The capability statement is readable without credentials so clients
	// can discover the server before authenticating.
	if path == "metadata" {
		if r.Method != http.MethodGet {
			httputil.WriteOutcome(w, http.StatusMethodNotAllowed, fhir.CodeNotSupported, "metadata only supports GET")
			return
		}
		h.handleMetadata(w)
		return
	}

	if authErr := h.auth.authorize(r); authErr != nil {
		h.log.Debug("request rejected", "path", r.URL.Path, "missing_credential", authErr.missing)
		if authErr.missing {
			httputil.WriteUnauthorized(w, authErr.message)
		} else {
			httputil.WriteForbidden(w, authErr.message)
		}
		return
	}

	segments := strings.Split(path, "/")
	switch len(segments) {
	case 1:
		if segments[0] == "" {
			httputil.WriteNotFound(w, "Resource not found")
			return
		}
		h.handleType(w, r, segments[0])
	case 2:
		h.handleInstance(w, r, segments[0], segments[1])
	default:
		httputil.WriteNotFound(w, "Resource not found")
	}
}

// handleMetadata serves GET /metadata.
func (h *Handler) handleMetadata(w http.ResponseWriter) {
	cs := fhir.NewCapabilityStatement(h.software, h.version, h.store.Types())
	httputil.WriteResource(w, cs)
}

// handleType serves type-level interactions: search and create.
func (h *Handler) handleType(w http.ResponseWriter, r *http.Request, resourceType string) {
	collection := h.store.Collection(resourceType)
	if collection == nil {
		httputil.WriteOutcome(w, http.StatusNotFound, fhir.CodeNotSupported,
			fmt.Sprintf("Resource type %q is not supported", resourceType))
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleSearch(w, r, collection)
	case http.MethodPost:
		h.handleCreate(w, r, collection)
	default:
		httputil.WriteOutcome(w, http.StatusMethodNotAllowed, fhir.CodeNotSupported,
			fmt.Sprintf("%s is not supported on /%s", r.Method, resourceType))
	}
}

// handleInstance serves instance-level interactions: read, update, delete.
func (h *Handler) handleInstance(w http.ResponseWriter, r *http.Request, resourceType, rid string) {
	collection := h.store.Collection(resourceType)
	if collection == nil {
		httputil.WriteOutcome(w, http.StatusNotFound, fhir.CodeNotSupported,
			fmt.Sprintf("Resource type %q is not supported", resourceType))
		return
	}

	switch r.Method {
	case http.MethodGet:
		resource := collection.Get(rid)
		if resource == nil {
			httputil.WriteNotFound(w, "Resource not found")
			return
		}
		httputil.WriteResource(w, resource)

	case http.MethodPut:
		body, ok := h.readResourceBody(w, r, resourceType)
		if !ok {
			return
		}
		updated, err := collection.Update(rid, body)
		if err != nil {
			httputil.WriteNotFound(w, "Resource not found")
			return
		}
		h.log.Info("resource updated", "type", resourceType, "id", rid)
		httputil.WriteResource(w, updated)

	case http.MethodDelete:
		if err := collection.Delete(rid); err != nil {
			httputil.WriteNotFound(w, "Resource not found")
			return
		}
		h.log.Info("resource deleted", "type", resourceType, "id", rid)
		httputil.WriteNoContent(w)

	default:
		httputil.WriteOutcome(w, http.StatusMethodNotAllowed, fhir.CodeNotSupported,
			fmt.Sprintf("%s is not supported on /%s/{id}", r.Method, resourceType))
	}
}

// handleSearch serves GET /{Type} and emits a searchset Bundle.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request, collection *Collection) {
	params := ParseSearchParams(r.URL.Query())
	page, total := collection.Search(params)

	base := requestBaseURL(r)
	bundle := fhir.NewSearchSet(total)
	bundle.AddLink(fhir.LinkSelf, base+r.URL.RequestURI())
	if params.Offset+params.Count < total {
		bundle.AddLink(fhir.LinkNext, nextPageURL(base, r.URL, params))
	}
	for _, resource := range page {
		rid, _ := resource["id"].(string)
		bundle.AddEntry(fmt.Sprintf("%s/%s/%s", base, collection.ResourceType(), rid), resource)
	}

	httputil.WriteResource(w, bundle)
}

// handleCreate serves POST /{Type}.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, collection *Collection) {
	body, ok := h.readResourceBody(w, r, collection.ResourceType())
	if !ok {
		return
	}

	created, err := collection.Create(body)
	if err != nil {
		httputil.WriteOutcome(w, http.StatusConflict, fhir.CodeDuplicate, err.Error())
		return
	}

	rid, _ := created["id"].(string)
	h.log.Info("resource created", "type", collection.ResourceType(), "id", rid)
	location := fmt.Sprintf("%s/%s/%s", requestBaseURL(r), collection.ResourceType(), rid)
	httputil.WriteCreated(w, location, created)
}

// readResourceBody decodes and validates a request body, writing the error
// response itself when the body is unacceptable.
func (h *Handler) readResourceBody(w http.ResponseWriter, r *http.Request, resourceType string) (map[string]any, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		httputil.WriteBadRequest(w, "Failed to read request body")
		return nil, false
	}
	if len(data) > MaxBodyBytes {
		httputil.WriteBadRequest(w, "Request body too large")
		return nil, false
	}

	var resource map[string]any
	if err := json.Unmarshal(data, &resource); err != nil {
		httputil.WriteBadRequest(w, "Invalid JSON: "+err.Error())
		return nil, false
	}

	if err := ValidateResource(resource, resourceType); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	return resource, true
}

// requestBaseURL reconstructs the scheme://host prefix of a request.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// nextPageURL builds the next-page link by advancing _offset.
func nextPageURL(base string, u *url.URL, params *SearchParams) string {
	q := u.Query()
	q.Set("_offset", fmt.Sprintf("%d", params.Offset+params.Count))
	q.Set("_count", fmt.Sprintf("%d", params.Count))
	next := *u
	next.RawQuery = q.Encode()
	return base + next.RequestURI()
}
