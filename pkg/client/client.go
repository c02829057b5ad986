// Package client is a thin wrapper around a FHIR REST endpoint. Transport
// and HTTP failures are surfaced in-band as OperationOutcome payloads rather
// than Go errors, so callers (and MCP tool handlers) always receive a FHIR
// resource they can forward as-is.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/0bese/fhir-mcp/pkg/fhir"
	"github.com/0bese/fhir-mcp/pkg/logging"
)

// DefaultTimeout bounds each request when the caller's context has no
// earlier deadline.
const DefaultTimeout = 30 * time.Second

// Search pagination bounds enforced on the _count parameter.
const (
	DefaultCount = 10
	MaxCount     = 1000
)

// Client talks to a FHIR REST endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the given FHIR base URL
// (e.g. "http://localhost:8945").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL of the target server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPatient retrieves a single Patient resource by id.
func (c *Client) GetPatient(ctx context.Context, patientID string) map[string]any {
	return c.do(ctx, http.MethodGet, "Patient/"+url.PathEscape(patientID), nil)
}

// Read retrieves a single resource by type and id.
func (c *Client) Read(ctx context.Context, resourceType, id string) map[string]any {
	return c.do(ctx, http.MethodGet, resourceType+"/"+url.PathEscape(id), nil)
}

// Search queries a resource type with raw search parameters.
func (c *Client) Search(ctx context.Context, resourceType string, params url.Values) map[string]any {
	return c.do(ctx, http.MethodGet, resourceType, params)
}

// Metadata retrieves the server's capability statement.
func (c *Client) Metadata(ctx context.Context) map[string]any {
	return c.do(ctx, http.MethodGet, "metadata", nil)
}

// PatientSearch holds the filters for SearchPatients.
type PatientSearch struct {
	Name   string
	Family string
	Count  int
}

// SearchPatients searches Patient resources. With no filters it lists the
// first page of patients.
func (c *Client) SearchPatients(ctx context.Context, opts PatientSearch) map[string]any {
	params := searchParams(opts.Count)
	if opts.Name != "" {
		params.Set("name", opts.Name)
	}
	if opts.Family != "" {
		params.Set("family", opts.Family)
	}
	return c.Search(ctx, "Patient", params)
}

// ObservationSearch holds the filters for SearchObservations.
type ObservationSearch struct {
	Patient string
	Count   int
}

// SearchObservations queries Observation resources (vitals, labs).
func (c *Client) SearchObservations(ctx context.Context, opts ObservationSearch) map[string]any {
	params := searchParams(opts.Count)
	if opts.Patient != "" {
		params.Set("patient", opts.Patient)
	}
	return c.Search(ctx, "Observation", params)
}

// ConditionSearch holds the filters for SearchConditions.
type ConditionSearch struct {
	Patient        string
	Code           string
	ClinicalStatus string
	Count          int
}

// SearchConditions finds Condition resources (diagnoses).
func (c *Client) SearchConditions(ctx context.Context, opts ConditionSearch) map[string]any {
	params := searchParams(opts.Count)
	if opts.Patient != "" {
		params.Set("patient", opts.Patient)
	}
	if opts.Code != "" {
		params.Set("code", opts.Code)
	}
	if opts.ClinicalStatus != "" {
		params.Set("clinical-status", opts.ClinicalStatus)
	}
	return c.Search(ctx, "Condition", params)
}

// MedicationRequestSearch holds the filters for SearchMedicationRequests.
type MedicationRequestSearch struct {
	Patient string
	Status  string
	Intent  string
	Count   int
}

// SearchMedicationRequests queries prescribed or planned medications.
func (c *Client) SearchMedicationRequests(ctx context.Context, opts MedicationRequestSearch) map[string]any {
	params := searchParams(opts.Count)
	if opts.Patient != "" {
		params.Set("patient", opts.Patient)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Intent != "" {
		params.Set("intent", opts.Intent)
	}
	return c.Search(ctx, "MedicationRequest", params)
}

// ReportSearch holds the filters for SearchDiagnosticReports and
// SearchCarePlans, which share a shape.
type ReportSearch struct {
	Patient  string
	Status   string
	Category string
	Count    int
}

// SearchDiagnosticReports queries lab results, imaging reports, and other
// diagnostic documents.
func (c *Client) SearchDiagnosticReports(ctx context.Context, opts ReportSearch) map[string]any {
	return c.Search(ctx, "DiagnosticReport", reportParams(opts))
}

// SearchCarePlans finds care plans (treatment plans, pathways).
func (c *Client) SearchCarePlans(ctx context.Context, opts ReportSearch) map[string]any {
	return c.Search(ctx, "CarePlan", reportParams(opts))
}

func reportParams(opts ReportSearch) url.Values {
	params := searchParams(opts.Count)
	if opts.Patient != "" {
		params.Set("patient", opts.Patient)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	return params
}

// FindPatientsWithConditions returns the distinct, sorted Patient ids
// referenced by Condition resources, optionally filtered by condition code.
// Useful when Patient records are missing but Conditions exist.
func (c *Client) FindPatientsWithConditions(ctx context.Context, code string, count int) []string {
	if count <= 0 {
		count = 100
	}
	params := searchParams(count)
	if code != "" {
		params.Set("code", code)
	}

	bundle := c.Search(ctx, "Condition", params)

	seen := make(map[string]struct{})
	for _, resource := range fhir.BundleEntries(bundle) {
		ref, ok := fhir.ParseReference(fhir.SubjectReference(resource))
		if !ok || ref.Type != "Patient" {
			continue
		}
		seen[ref.ID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// searchParams builds query values with a clamped _count.
func searchParams(count int) url.Values {
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}
	params := url.Values{}
	params.Set("_count", strconv.Itoa(count))
	return params
}

// do executes a request and returns the decoded body. Failures never produce
// a Go error; they come back as OperationOutcome maps with the code mapping
// 404→not-found, 401→security, 403→forbidden, timeout→timeout, undecodable
// body→invalid, anything else→exception.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values) map[string]any {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fhir.OutcomeMap(fhir.CodeException, fmt.Sprintf("Unexpected error: %v", err))
	}
	req.Header.Set("Accept", fhir.MimeTypeJSON)
	req.Header.Set("Content-Type", fhir.MimeTypeJSON)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("fhir request", "method", method, "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("fhir request timed out", "url", u)
			return fhir.OutcomeMap(fhir.CodeTimeout, "Request timed out")
		}
		c.log.Error("fhir request failed", "url", u, "error", err)
		return fhir.OutcomeMap(fhir.CodeException, fmt.Sprintf("HTTP error: %v", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fhir.OutcomeMap(fhir.CodeNotFound, "Resource not found")
	case http.StatusUnauthorized:
		return fhir.OutcomeMap(fhir.CodeSecurity, "Authentication required")
	case http.StatusForbidden:
		return fhir.OutcomeMap(fhir.CodeForbidden, "Access forbidden")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fhir.OutcomeMap(fhir.CodeException,
			fmt.Sprintf("HTTP error: server returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return fhir.OutcomeMap(fhir.CodeTimeout, "Request timed out")
		}
		return fhir.OutcomeMap(fhir.CodeException, fmt.Sprintf("HTTP error: %v", err))
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.log.Error("invalid json from server", "url", u, "error", err)
		return fhir.OutcomeMap(fhir.CodeInvalid, fmt.Sprintf("Invalid JSON: %v", err))
	}
	return decoded
}

// isTimeout reports whether an error is a deadline or timeout failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
