package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StoreContent archives a document and returns its id. Identical bytes are
// stored once.
func (db *DB) StoreContent(ctx context.Context, data []byte, contentType, bucket string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO raw_contents (bucket, content_type, sha256, size_bytes, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (sha256) DO UPDATE SET bucket = EXCLUDED.bucket
		 RETURNING id`,
		bucket, contentType, HashContent(data), len(data), data,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store raw content: %w", err)
	}
	return id, nil
}

// RetrieveContent returns archived bytes, or nil if the id is unknown.
func (db *DB) RetrieveContent(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var data []byte
	err := db.pool.QueryRow(ctx, `SELECT data FROM raw_contents WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve raw content: %w", err)
	}
	return data, nil
}
