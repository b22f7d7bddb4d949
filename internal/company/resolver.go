// Package company resolves the employer behind a job posting to a single
// persisted Company record.
package company

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/types"
	"github.com/jonathan/job-ingest/internal/urlnorm"
)

// Store is the company persistence the resolver needs.
type Store interface {
	GetCompanyByDomain(ctx context.Context, domain string) (*db.Company, error)
	GetCompanyByJobsURL(ctx context.Context, jobsURL string) (*db.Company, error)
	CreateCompany(ctx context.Context, in *db.CompanyCreateInput) (*db.Company, error)
}

// Enricher infers company identity from page content.
type Enricher interface {
	Enrich(ctx context.Context, in Input) (*types.CompanyEnrichment, error)
}

// Input is what the resolver knows about a posting's employer.
type Input struct {
	NameHint  string
	SourceURL string
	Content   string
}

// EnrichmentError reports that the employer's identity could not be
// inferred. The posting itself is still usable.
type EnrichmentError struct {
	Cause error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("company enrichment failed: %v", e.Cause)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Cause
}

// Resolver finds or creates the Company for a posting.
type Resolver struct {
	Store    Store
	Enricher Enricher
}

// NewResolver returns a Resolver.
func NewResolver(store Store, enricher Enricher) *Resolver {
	return &Resolver{Store: store, Enricher: enricher}
}

// Resolve enriches the input and matches the result against stored
// companies. A nil company with a nil error means no domain could be
// established and the job should be stored without a company. Enrichment
// failures come back as *EnrichmentError so callers can choose to continue.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*db.Company, *types.CompanyEnrichment, error) {
	enrichment, err := r.Enricher.Enrich(ctx, in)
	if err != nil {
		return nil, nil, &EnrichmentError{Cause: err}
	}
	enrichment = Sanitize(enrichment, in)
	company, err := r.Match(ctx, enrichment)
	if err != nil {
		return nil, enrichment, err
	}
	return company, enrichment, nil
}

// Match applies the lookup order: domain, then jobs URL, then create when
// a domain is known. Without a domain and no jobs URL match it returns nil.
func (r *Resolver) Match(ctx context.Context, e *types.CompanyEnrichment) (*db.Company, error) {
	domain := types.Deref(e.Domain)
	jobsURL := types.Deref(e.JobsURL)

	if domain != "" {
		c, err := r.Store.GetCompanyByDomain(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("find company by domain: %w", err)
		}
		if c != nil {
			slog.Debug("company matched by domain", "company_id", c.ID, "domain", domain)
			return c, nil
		}
	}

	if jobsURL != "" {
		c, err := r.Store.GetCompanyByJobsURL(ctx, jobsURL)
		if err != nil {
			return nil, fmt.Errorf("find company by jobs url: %w", err)
		}
		if c != nil {
			slog.Debug("company matched by jobs url", "company_id", c.ID, "jobs_url", jobsURL)
			return c, nil
		}
	}

	if domain == "" {
		slog.Info("no company domain found, job will have no company", "name", e.Name)
		return nil, nil
	}

	c, err := r.Store.CreateCompany(ctx, &db.CompanyCreateInput{
		Name:         e.Name,
		Domain:       domain,
		JobsURL:      e.JobsURL,
		WebsiteURL:   e.WebsiteURL,
		Industry:     e.Industry,
		Size:         e.Size,
		Headquarters: e.Headquarters,
	})
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	slog.Info("company created", "company_id", c.ID, "name", c.Name, "domain", domain)
	return c, nil
}

// Sanitize normalizes an enrichment and strips anything that points at a
// recruiting platform rather than the employer. The jobs URL falls back to
// the ATS board of the source URL.
func Sanitize(e *types.CompanyEnrichment, in Input) *types.CompanyEnrichment {
	out := *e
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		out.Name = strings.TrimSpace(in.NameHint)
	}

	if out.WebsiteURL != nil && !strings.Contains(*out.WebsiteURL, "://") {
		withScheme := "https://" + strings.TrimSpace(*out.WebsiteURL)
		out.WebsiteURL = &withScheme
	}
	if out.WebsiteURL != nil && (urlnorm.IsATSHost(urlnorm.Host(*out.WebsiteURL)) || urlnorm.Host(*out.WebsiteURL) == "") {
		out.WebsiteURL = nil
	}

	domain := ""
	if out.Domain != nil {
		domain = db.NormalizeDomain(*out.Domain)
	}
	if domain == "" && out.WebsiteURL != nil {
		domain = db.NormalizeDomain(urlnorm.Host(*out.WebsiteURL))
	}
	if domain != "" && (urlnorm.IsATSHost(domain) || !strings.Contains(domain, ".")) {
		domain = ""
	}
	out.Domain = types.StringPtr(domain)

	out.JobsURL = canonicalJobsURL(types.Deref(out.JobsURL))
	if out.JobsURL == nil {
		if board, ok := urlnorm.BoardURL(in.SourceURL); ok {
			out.JobsURL = &board
		}
	}
	return &out
}

func canonicalJobsURL(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if board, ok := urlnorm.BoardURL(raw); ok {
		return &board
	}
	if u, err := url.Parse(raw); err != nil || u.Host == "" {
		return nil
	}
	n := urlnorm.Normalize(raw)
	return &n
}
