package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, source_url, source, company_id, company_name, title, data, completion_state,
	raw_content_id, extraction_config_id, status, last_checked_at, closed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var data []byte
	err := row.Scan(&j.ID, &j.SourceURL, &j.Source, &j.CompanyID, &j.CompanyName, &j.Title, &data,
		&j.CompletionState, &j.RawContentID, &j.ExtractionConfigID, &j.Status, &j.LastCheckedAt,
		&j.ClosedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &j.Data); err != nil {
			return nil, fmt.Errorf("failed to decode job data: %w", err)
		}
	}
	return &j, nil
}

// GetJobBySourceURL finds a job by normalized source URL
func (db *DB) GetJobBySourceURL(ctx context.Context, sourceURL string) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE source_url = $1`, sourceURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job by source url: %w", err)
	}
	return j, nil
}

// GetJobByID retrieves a job by its UUID
func (db *DB) GetJobByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// CreateJob inserts a job. An existing source_url yields ErrDuplicate.
func (db *DB) CreateJob(ctx context.Context, in *JobCreateInput) (*Job, error) {
	data, err := json.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job data: %w", err)
	}

	j, err := scanJob(db.pool.QueryRow(ctx,
		`INSERT INTO jobs (source_url, source, company_id, company_name, title, data, completion_state,
		                   raw_content_id, extraction_config_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+jobColumns,
		in.SourceURL, in.Source, in.CompanyID, in.CompanyName, in.Data.Title, data, in.CompletionState,
		in.RawContentID, in.ExtractionConfigID, JobStatusOpen))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("job %s: %w", in.SourceURL, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return j, nil
}

// ListOpenJobs returns open jobs, least recently checked first
func (db *DB) ListOpenJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1
		 ORDER BY last_checked_at NULLS FIRST, created_at
		 LIMIT $2`, JobStatusOpen, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// MarkJobChecked records a status check; closed jobs get closed_at set.
func (db *DB) MarkJobChecked(ctx context.Context, id uuid.UUID, closed bool, at time.Time) error {
	var err error
	if closed {
		_, err = db.pool.Exec(ctx,
			`UPDATE jobs SET status = $1, last_checked_at = $2, closed_at = $2, updated_at = NOW() WHERE id = $3`,
			JobStatusClosed, at, id)
	} else {
		_, err = db.pool.Exec(ctx,
			`UPDATE jobs SET last_checked_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
