package extraction

import (
	"strings"
	"time"

	"github.com/jonathan/job-ingest/internal/types"
)

// Field names are the ExtractedJobData JSON names.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldApplicationURL = "application_url"
	FieldSalaryCurrency = "salary_currency"
	FieldIsRemote       = "is_remote"
	FieldPostedDate     = "posted_date"
	FieldClosingDate    = "closing_date"

	// FieldSalary covers salary_min and salary_max.
	FieldSalary      = "salary"
	FieldCompanyName = "company_name"
)

// textFields are single-valued string fields that rules can locate by
// exact text.
var textFields = map[string]func(d *types.ExtractedJobData) **string{
	"location":         func(d *types.ExtractedJobData) **string { return &d.Location },
	"job_type":         func(d *types.ExtractedJobData) **string { return &d.JobType },
	"experience_level": func(d *types.ExtractedJobData) **string { return &d.ExperienceLevel },
	"education_level":  func(d *types.ExtractedJobData) **string { return &d.EducationLevel },
	"category":         func(d *types.ExtractedJobData) **string { return &d.Category },
}

// dateFields are located by the date they contain.
var dateFields = map[string]func(d *types.ExtractedJobData) **time.Time{
	FieldPostedDate:  func(d *types.ExtractedJobData) **time.Time { return &d.PostedDate },
	FieldClosingDate: func(d *types.ExtractedJobData) **time.Time { return &d.ClosingDate },
}

var listFields = map[string]func(d *types.ExtractedJobData) *[]string{
	"qualifications":           func(d *types.ExtractedJobData) *[]string { return &d.Qualifications },
	"preferred_qualifications": func(d *types.ExtractedJobData) *[]string { return &d.PreferredQualifications },
	"responsibilities":         func(d *types.ExtractedJobData) *[]string { return &d.Responsibilities },
	"benefits":                 func(d *types.ExtractedJobData) *[]string { return &d.Benefits },
}

func normText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
