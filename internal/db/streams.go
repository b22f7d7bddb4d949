package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertStreamEntry adds a job to a profile's stream. Re-adding returns the
// existing entry.
func (db *DB) UpsertStreamEntry(ctx context.Context, profileID string, jobID uuid.UUID) (*StreamEntry, error) {
	var e StreamEntry
	err := db.pool.QueryRow(ctx,
		`INSERT INTO job_stream_entries (profile_id, job_id)
		 VALUES ($1, $2)
		 ON CONFLICT (profile_id, job_id) DO UPDATE SET profile_id = EXCLUDED.profile_id
		 RETURNING id, profile_id, job_id, created_at`,
		profileID, jobID,
	).Scan(&e.ID, &e.ProfileID, &e.JobID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stream entry: %w", err)
	}
	return &e, nil
}

// UpsertApplication records an application, updating the status if one
// already exists for the profile and job.
func (db *DB) UpsertApplication(ctx context.Context, profileID string, jobID uuid.UUID, status string) (*Application, error) {
	var a Application
	err := db.pool.QueryRow(ctx,
		`INSERT INTO job_applications (profile_id, job_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (profile_id, job_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		 RETURNING id, profile_id, job_id, status, created_at, updated_at`,
		profileID, jobID, status,
	).Scan(&a.ID, &a.ProfileID, &a.JobID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert application: %w", err)
	}
	return &a, nil
}
