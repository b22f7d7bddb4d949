package db

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/types"
)

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("record already exists")

// Company represents a canonical employer record. Domain is the primary
// identity key; JobsURL is the secondary one.
type Company struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	Domain         *string   `json:"domain,omitempty"`
	JobsURL        *string   `json:"jobs_url,omitempty"`
	WebsiteURL     *string   `json:"website_url,omitempty"`
	Industry       *string   `json:"industry,omitempty"`
	Size           *string   `json:"size,omitempty"`
	Headquarters   *string   `json:"headquarters,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CompanyCreateInput holds the fields for creating a company. Domain is
// mandatory.
type CompanyCreateInput struct {
	Name         string
	Domain       string
	JobsURL      *string
	WebsiteURL   *string
	Industry     *string
	Size         *string
	Headquarters *string
}

// Job status values
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
)

// Job is a persisted posting keyed by its normalized source URL.
type Job struct {
	ID                 uuid.UUID              `json:"id"`
	SourceURL          string                 `json:"source_url"`
	Source             string                 `json:"source"`
	CompanyID          *uuid.UUID             `json:"company_id,omitempty"`
	CompanyName        *string                `json:"company_name,omitempty"`
	Title              string                 `json:"title"`
	Data               types.ExtractedJobData `json:"data"`
	CompletionState    types.CompletionState  `json:"completion_state"`
	RawContentID       *uuid.UUID             `json:"raw_content_id,omitempty"`
	ExtractionConfigID *uuid.UUID             `json:"extraction_config_id,omitempty"`
	Status             string                 `json:"status"`
	LastCheckedAt      *time.Time             `json:"last_checked_at,omitempty"`
	ClosedAt           *time.Time             `json:"closed_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// JobCreateInput holds the fields for creating a job.
type JobCreateInput struct {
	SourceURL          string
	Source             string
	CompanyID          *uuid.UUID
	CompanyName        *string
	Data               types.ExtractedJobData
	CompletionState    types.CompletionState
	RawContentID       *uuid.UUID
	ExtractionConfigID *uuid.UUID
}

// StreamEntry records that a job appeared in a profile's feed.
type StreamEntry struct {
	ID        uuid.UUID `json:"id"`
	ProfileID string    `json:"profile_id"`
	JobID     uuid.UUID `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Application status values
const (
	ApplicationStatusSaved     = "saved"
	ApplicationStatusApplied   = "applied"
	ApplicationStatusInterview = "interviewing"
	ApplicationStatusOffer     = "offer"
	ApplicationStatusRejected  = "rejected"
)

// ValidApplicationStatus reports whether s is a known application status.
func ValidApplicationStatus(s string) bool {
	switch s {
	case ApplicationStatusSaved, ApplicationStatusApplied, ApplicationStatusInterview,
		ApplicationStatusOffer, ApplicationStatusRejected:
		return true
	default:
		return false
	}
}

// Application tracks a profile's application to a job.
type Application struct {
	ID        uuid.UUID `json:"id"`
	ProfileID string    `json:"profile_id"`
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExtractionConfig is a learned rule set for one page layout.
type ExtractionConfig struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Version       int                 `json:"version"`
	MatchPatterns types.MatchPatterns `json:"match_patterns"`
	MatchHash     string              `json:"match_hash"`
	ExtractRules  types.ExtractRules  `json:"extract_rules"`
	HitCount      int                 `json:"hit_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ExtractionConfigInput holds the fields for upserting a config.
type ExtractionConfigInput struct {
	Name          string
	Version       int
	MatchPatterns types.MatchPatterns
	MatchHash     string
	ExtractRules  types.ExtractRules
}

// RawContent is an archived fetched document.
type RawContent struct {
	ID          uuid.UUID `json:"id"`
	Bucket      string    `json:"bucket"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	SizeBytes   int       `json:"size_bytes"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeName converts a company name to a normalized form for matching
// Example: "Affirm, Inc." -> "affirminc"
func NormalizeName(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

// NormalizeDomain lowercases a domain and strips scheme, www., port and path.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}
	if idx := strings.LastIndex(domain, ":"); idx >= 0 {
		domain = domain[:idx]
	}
	return strings.TrimSuffix(domain, ".")
}

// HashContent computes the SHA-256 hex digest of content.
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
