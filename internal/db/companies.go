package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const companyColumns = `id, name, name_normalized, domain, jobs_url, website_url, industry, size, headquarters, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.NameNormalized, &c.Domain, &c.JobsURL, &c.WebsiteURL,
		&c.Industry, &c.Size, &c.Headquarters, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompanyByID retrieves a company by its UUID
func (db *DB) GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// GetCompanyByDomain finds a company by its normalized domain
func (db *DB) GetCompanyByDomain(ctx context.Context, domain string) (*Company, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, nil
	}
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE domain = $1`, domain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company by domain: %w", err)
	}
	return c, nil
}

// GetCompanyByJobsURL finds a company by its ATS board URL
func (db *DB) GetCompanyByJobsURL(ctx context.Context, jobsURL string) (*Company, error) {
	jobsURL = strings.TrimSpace(jobsURL)
	if jobsURL == "" {
		return nil, nil
	}
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE jobs_url = $1
		 ORDER BY created_at LIMIT 1`, jobsURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company by jobs url: %w", err)
	}
	return c, nil
}

// CreateCompany inserts a company keyed by domain. A concurrent insert of the
// same domain returns the existing row instead of a duplicate.
func (db *DB) CreateCompany(ctx context.Context, in *CompanyCreateInput) (*Company, error) {
	domain := NormalizeDomain(in.Domain)
	if domain == "" {
		return nil, fmt.Errorf("company domain cannot be empty")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = domain
	}

	c, err := scanCompany(db.pool.QueryRow(ctx,
		`INSERT INTO companies (name, name_normalized, domain, jobs_url, website_url, industry, size, headquarters)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (domain) DO UPDATE SET
		   jobs_url = COALESCE(companies.jobs_url, EXCLUDED.jobs_url),
		   updated_at = NOW()
		 RETURNING `+companyColumns,
		name, NormalizeName(name), domain, in.JobsURL, in.WebsiteURL, in.Industry, in.Size, in.Headquarters))
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}
