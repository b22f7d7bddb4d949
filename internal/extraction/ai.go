package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/job-ingest/internal/llm"
	"github.com/jonathan/job-ingest/internal/types"
)

// DefaultMaxInputChars caps the document text sent to the model.
const DefaultMaxInputChars = 40000

// aiJobPosting mirrors llm.JobPostingSchema.
type aiJobPosting struct {
	Title                   string   `json:"title"`
	CompanyName             *string  `json:"company_name"`
	Description             *string  `json:"description"`
	Location                *string  `json:"location"`
	JobType                 *string  `json:"job_type"`
	ExperienceLevel         *string  `json:"experience_level"`
	EducationLevel          *string  `json:"education_level"`
	SalaryMin               *float64 `json:"salary_min"`
	SalaryMax               *float64 `json:"salary_max"`
	SalaryCurrency          *string  `json:"salary_currency"`
	Qualifications          []string `json:"qualifications"`
	PreferredQualifications []string `json:"preferred_qualifications"`
	Responsibilities        []string `json:"responsibilities"`
	Benefits                []string `json:"benefits"`
	Category                *string  `json:"category"`
	ApplicationURL          *string  `json:"application_url"`
	IsRemote                *bool    `json:"is_remote"`
	PostedDate              *string  `json:"posted_date"`
	ClosingDate             *string  `json:"closing_date"`
}

// AIExtractor extracts job fields with a language model.
type AIExtractor struct {
	Client        llm.Client
	Tier          llm.ModelTier
	MaxInputChars int
}

// NewAIExtractor returns an extractor on the standard tier.
func NewAIExtractor(client llm.Client) *AIExtractor {
	return &AIExtractor{Client: client, Tier: llm.TierStandard, MaxInputChars: DefaultMaxInputChars}
}

// Extract sends content and sourceURL to the model and maps the reply.
// Errors are *llm.Error values.
func (e *AIExtractor) Extract(ctx context.Context, sourceURL, content string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &llm.Error{Kind: llm.ErrSchemaMismatch, Message: "no content to extract from"}
	}
	limit := e.MaxInputChars
	if limit <= 0 {
		limit = DefaultMaxInputChars
	}
	if len(content) > limit {
		content = truncateRunes(content, limit)
	}

	var resp aiJobPosting
	if err := llm.Extract(ctx, e.Client, llm.JobPostingSchema(), sourceURL, content, e.Tier, &resp); err != nil {
		return nil, err
	}
	return &Result{
		Data:        resp.toJobData(),
		CompanyName: trimmed(resp.CompanyName),
		Method:      MethodAI,
	}, nil
}

func (r aiJobPosting) toJobData() types.ExtractedJobData {
	return types.ExtractedJobData{
		Title:                   strings.TrimSpace(r.Title),
		Description:             trimmed(r.Description),
		Location:                trimmed(r.Location),
		JobType:                 trimmed(r.JobType),
		ExperienceLevel:         trimmed(r.ExperienceLevel),
		EducationLevel:          trimmed(r.EducationLevel),
		SalaryMin:               r.SalaryMin,
		SalaryMax:               r.SalaryMax,
		SalaryCurrency:          trimmed(r.SalaryCurrency),
		Qualifications:          r.Qualifications,
		PreferredQualifications: r.PreferredQualifications,
		Responsibilities:        r.Responsibilities,
		Benefits:                r.Benefits,
		Category:                trimmed(r.Category),
		ApplicationURL:          trimmed(r.ApplicationURL),
		IsRemote:                r.IsRemote,
		PostedDate:              parseDate(r.PostedDate),
		ClosingDate:             parseDate(r.ClosingDate),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return types.StringPtr(strings.TrimSpace(*s))
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "January 2, 2006", "Jan 2, 2006"}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// String describes a result for logs.
func (r *Result) String() string {
	return fmt.Sprintf("%s extraction of %q", r.Method, r.Data.Title)
}
