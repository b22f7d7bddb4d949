// Package types provides the data shapes that flow between extraction,
// transformation, and loading.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// ExtractedJobData is the canonical intermediate job record. Only Title is
// required; everything else is independently optional.
type ExtractedJobData struct {
	Title                   string     `json:"title" validate:"required,max=500"`
	Description             *string    `json:"description,omitempty"`
	Location                *string    `json:"location,omitempty"`
	JobType                 *string    `json:"job_type,omitempty"`
	ExperienceLevel         *string    `json:"experience_level,omitempty"`
	EducationLevel          *string    `json:"education_level,omitempty"`
	SalaryMin               *float64   `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax               *float64   `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	SalaryCurrency          *string    `json:"salary_currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Qualifications          []string   `json:"qualifications,omitempty"`
	PreferredQualifications []string   `json:"preferred_qualifications,omitempty"`
	Responsibilities        []string   `json:"responsibilities,omitempty"`
	Benefits                []string   `json:"benefits,omitempty"`
	Category                *string    `json:"category,omitempty"`
	ApplicationURL          *string    `json:"application_url,omitempty" validate:"omitempty,url"`
	IsRemote                *bool      `json:"is_remote,omitempty"`
	PostedDate              *time.Time `json:"posted_date,omitempty"`
	ClosingDate             *time.Time `json:"closing_date,omitempty"`
}

// HasSalary reports whether either salary bound is present.
func (d *ExtractedJobData) HasSalary() bool {
	return d.SalaryMin != nil || d.SalaryMax != nil
}

// CompletionState classifies how trustworthy an extracted record is.
type CompletionState string

// Completion states, best first.
const (
	CompletionComplete   CompletionState = "complete"
	CompletionSufficient CompletionState = "sufficient"
	CompletionPartial    CompletionState = "partial"
	CompletionMinimal    CompletionState = "minimal"
	CompletionFailed     CompletionState = "failed"
)

// DiscoveredJob is a candidate posting produced by a source connector.
type DiscoveredJob struct {
	URL       string            `json:"url"`
	Source    string            `json:"source"`
	CompanyID *uuid.UUID        `json:"company_id,omitempty"`
	APIURL    *string           `json:"api_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CompanyEnrichment is company identity data inferred from page content.
type CompanyEnrichment struct {
	Name         string  `json:"name"`
	WebsiteURL   *string `json:"website_url,omitempty"`
	Domain       *string `json:"domain,omitempty"`
	JobsURL      *string `json:"jobs_url,omitempty"`
	Industry     *string `json:"industry,omitempty"`
	Size         *string `json:"size,omitempty"`
	Headquarters *string `json:"headquarters,omitempty"`
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
