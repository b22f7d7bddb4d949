package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/company"
	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/extraction"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/types"
)

// Request asks for one job URL to be ingested.
type Request struct {
	URL string `json:"url" validate:"required,url,startswith=http"`
	// CompanyID skips company resolution when the employer is known.
	CompanyID   *uuid.UUID `json:"company_id,omitempty"`
	CompanyName *string    `json:"company_name,omitempty"`
	AddToStream bool       `json:"add_to_stream"`
	// ApplicationStatus, when set, records an application for the profile.
	ApplicationStatus string `json:"application_status,omitempty" validate:"omitempty,oneof=saved applied interviewing offer rejected"`
	// Source labels where the request came from; defaults per pipeline.
	Source string `json:"source,omitempty"`
	// SourceType and APIURL select structured extraction.
	SourceType string  `json:"source_type,omitempty"`
	APIURL     *string `json:"api_url,omitempty"`
}

// Output is the outcome of a successful ingestion.
type Output struct {
	Job            *db.Job               `json:"job"`
	StreamEntry    *db.StreamEntry       `json:"stream_entry,omitempty"`
	Application    *db.Application       `json:"application,omitempty"`
	AlreadyExisted bool                  `json:"already_existed"`
	Completion     types.CompletionState `json:"completion_state"`
}

// RequestFromDiscovered builds a request for a job found by a connector.
func RequestFromDiscovered(job types.DiscoveredJob, companyName string) Request {
	return Request{
		URL:         job.URL,
		CompanyID:   job.CompanyID,
		CompanyName: types.StringPtr(companyName),
		Source:      job.Source,
		SourceType:  job.Source,
		APIURL:      job.APIURL,
	}
}

// Store is the persistence ingestion writes to.
type Store interface {
	GetJobBySourceURL(ctx context.Context, sourceURL string) (*db.Job, error)
	CreateJob(ctx context.Context, in *db.JobCreateInput) (*db.Job, error)
	UpsertStreamEntry(ctx context.Context, profileID string, jobID uuid.UUID) (*db.StreamEntry, error)
	UpsertApplication(ctx context.Context, profileID string, jobID uuid.UUID, status string) (*db.Application, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*db.Company, error)
}

// ContentStore archives raw fetched documents.
type ContentStore interface {
	StoreContent(ctx context.Context, data []byte, contentType, bucket string) (uuid.UUID, error)
}

// StatusStore is the persistence the status check needs.
type StatusStore interface {
	ListOpenJobs(ctx context.Context, limit int) ([]db.Job, error)
	MarkJobChecked(ctx context.Context, id uuid.UUID, closed bool, at time.Time) error
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// PageExtractor extracts job fields from a fetched page.
type PageExtractor interface {
	Extract(ctx context.Context, pageURL, html, text string) (*extraction.Result, error)
}

// APIExtractor extracts job fields from an ATS detail API.
type APIExtractor interface {
	Supports(sourceType string) bool
	Extract(ctx context.Context, sourceType, apiURL string) (*extraction.Result, error)
}

// CompanyResolver finds the employer of a posting.
type CompanyResolver interface {
	Resolve(ctx context.Context, in company.Input) (*db.Company, *types.CompanyEnrichment, error)
}
