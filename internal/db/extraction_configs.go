package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const extractionConfigColumns = `id, name, version, match_patterns, match_hash, extract_rules, hit_count, created_at, updated_at`

func scanExtractionConfig(row pgx.Row) (*ExtractionConfig, error) {
	var c ExtractionConfig
	var patterns, rules []byte
	err := row.Scan(&c.ID, &c.Name, &c.Version, &patterns, &c.MatchHash, &rules, &c.HitCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patterns, &c.MatchPatterns); err != nil {
		return nil, fmt.Errorf("failed to decode match patterns: %w", err)
	}
	if err := json.Unmarshal(rules, &c.ExtractRules); err != nil {
		return nil, fmt.Errorf("failed to decode extract rules: %w", err)
	}
	return &c, nil
}

// GetExtractionConfig looks up a learned config by match hash and rule
// version, bumping its hit counter.
func (db *DB) GetExtractionConfig(ctx context.Context, matchHash string, version int) (*ExtractionConfig, error) {
	c, err := scanExtractionConfig(db.pool.QueryRow(ctx,
		`UPDATE extraction_configs SET hit_count = hit_count + 1
		 WHERE match_hash = $1 AND version = $2
		 RETURNING `+extractionConfigColumns,
		matchHash, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get extraction config: %w", err)
	}
	return c, nil
}

// UpsertExtractionConfig inserts or replaces the config for
// (match_hash, version).
func (db *DB) UpsertExtractionConfig(ctx context.Context, in *ExtractionConfigInput) (*ExtractionConfig, error) {
	patterns, err := json.Marshal(in.MatchPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match patterns: %w", err)
	}
	rules, err := json.Marshal(in.ExtractRules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract rules: %w", err)
	}

	c, err := scanExtractionConfig(db.pool.QueryRow(ctx,
		`INSERT INTO extraction_configs (name, version, match_patterns, match_hash, extract_rules)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_hash, version) DO UPDATE SET
		   name = EXCLUDED.name,
		   match_patterns = EXCLUDED.match_patterns,
		   extract_rules = EXCLUDED.extract_rules,
		   updated_at = NOW()
		 RETURNING `+extractionConfigColumns,
		in.Name, in.Version, patterns, in.MatchHash, rules))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert extraction config: %w", err)
	}
	return c, nil
}
