package client

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/0bese/fhir-mcp/pkg/fhir"
)

// Resource types probed by AssessDataQuality when no type is given.
var defaultProbeTypes = []string{"Patient", "Observation", "Condition", "MedicationRequest"}

// ValidationIssue describes one issue found while validating a response.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Details  string `json:"details"`
}

// BundleQuality summarizes a searchset Bundle.
type BundleQuality struct {
	TotalResources    int      `json:"total_resources"`
	ReturnedResources int      `json:"returned_resources"`
	HasNextPage       bool     `json:"has_next_page"`
	ResourceTypes     []string `json:"resource_types"`
}

// ResponseValidation is the result of checking a single FHIR response.
type ResponseValidation struct {
	IsValid      bool              `json:"is_valid"`
	Issues       []ValidationIssue `json:"issues"`
	ResourceType string            `json:"resource_type"`
	DataQuality  *BundleQuality    `json:"data_quality,omitempty"`
}

// ResourceAssessment is the per-type entry of an Assessment.
type ResourceAssessment struct {
	Accessible       bool              `json:"accessible"`
	TotalAvailable   int               `json:"total_available"`
	Issues           []ValidationIssue `json:"issues"`
	DataQualityScore float64           `json:"data_quality_score"`
}

// Assessment is a data-quality scan across resource types.
type Assessment struct {
	ServerURL           string                        `json:"server_url"`
	Timestamp           string                        `json:"timestamp"`
	ResourceAssessments map[string]ResourceAssessment `json:"resource_assessments"`
}

// ValidateResponse inspects a decoded FHIR response. An OperationOutcome is
// invalid and carries its issues; a Bundle additionally gets a quality
// summary; anything else passes with no issues.
func ValidateResponse(response map[string]any) ResponseValidation {
	v := ResponseValidation{
		IsValid:      true,
		Issues:       []ValidationIssue{},
		ResourceType: fhir.ResourceTypeOf(response),
	}

	if fhir.IsOperationOutcome(response) {
		v.IsValid = false
		for _, issue := range fhir.OutcomeIssues(response) {
			details := issue.Details.Text
			if details == "" {
				details = "No details"
			}
			v.Issues = append(v.Issues, ValidationIssue{
				Severity: issue.Severity,
				Code:     issue.Code,
				Details:  details,
			})
		}
		return v
	}

	if fhir.IsBundle(response) {
		entries := fhir.BundleEntries(response)
		types := make(map[string]struct{})
		for _, resource := range entries {
			types[fhir.ResourceTypeOf(resource)] = struct{}{}
		}
		typeList := make([]string, 0, len(types))
		for rt := range types {
			typeList = append(typeList, rt)
		}
		sort.Strings(typeList)

		v.DataQuality = &BundleQuality{
			TotalResources:    fhir.BundleTotal(response),
			ReturnedResources: len(entries),
			HasNextPage:       fhir.HasNextLink(response),
			ResourceTypes:     typeList,
		}
	}
	return v
}

// QualityScore computes a 0..100 score for a validated response: invalid
// responses score 0; each error issue costs 30 points, each warning 10; an
// empty result set costs 50.
func QualityScore(v ResponseValidation) float64 {
	if !v.IsValid {
		return 0
	}
	score := 100.0
	for _, issue := range v.Issues {
		switch issue.Severity {
		case fhir.SeverityError:
			score -= 30
		case fhir.SeverityWarning:
			score -= 10
		}
	}
	if v.DataQuality != nil && v.DataQuality.TotalResources == 0 {
		score -= 50
	}
	if score < 0 {
		score = 0
	}
	return score
}

// AssessDataQuality probes resource types on the server and scores each one.
// With resourceType empty the default probe set is scanned.
func (c *Client) AssessDataQuality(ctx context.Context, resourceType string) Assessment {
	assessment := Assessment{
		ServerURL:           c.baseURL,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		ResourceAssessments: make(map[string]ResourceAssessment),
	}

	probeTypes := defaultProbeTypes
	if resourceType != "" {
		probeTypes = []string{resourceType}
	}

	params := url.Values{}
	params.Set("_count", strconv.Itoa(DefaultCount))

	for _, rt := range probeTypes {
		bundle := c.Search(ctx, rt, params)
		validation := ValidateResponse(bundle)

		entry := ResourceAssessment{
			Accessible:       validation.IsValid,
			Issues:           validation.Issues,
			DataQualityScore: QualityScore(validation),
		}
		if validation.DataQuality != nil {
			entry.TotalAvailable = validation.DataQuality.TotalResources
		}
		assessment.ResourceAssessments[rt] = entry
	}
	return assessment
}
