package extraction

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/types"
)

// RulesVersion is the rule format version; configs are keyed by
// (match hash, version).
const RulesVersion = 2

// ConfigStore persists learned rule sets.
type ConfigStore interface {
	GetExtractionConfig(ctx context.Context, matchHash string, version int) (*db.ExtractionConfig, error)
	UpsertExtractionConfig(ctx context.Context, in *db.ExtractionConfigInput) (*db.ExtractionConfig, error)
}

// AI is the fallback extractor.
type AI interface {
	Extract(ctx context.Context, sourceURL, content string) (*Result, error)
}

// ConfigExtractor applies a stored rule set when the page layout is known
// and otherwise falls back to AI extraction, learning and storing a rule
// set for the layout from the AI result.
type ConfigExtractor struct {
	Store ConfigStore
	AI    AI

	group singleflight.Group
}

// NewConfigExtractor returns a ConfigExtractor.
func NewConfigExtractor(store ConfigStore, ai AI) *ConfigExtractor {
	return &ConfigExtractor{Store: store, AI: ai}
}

// Extract runs config-first extraction. html is the raw page and text its
// cleaned main content, which is what the AI fallback sees.
func (e *ConfigExtractor) Extract(ctx context.Context, pageURL, html, text string) (*Result, error) {
	patterns, err := ComputeSignature(pageURL, html)
	if err != nil {
		slog.Warn("layout signature failed, using AI extraction", "url", pageURL, "error", err)
		return e.AI.Extract(ctx, pageURL, text)
	}
	hash := MatchHash(patterns)
	logger := slog.With("url", pageURL, "match_hash", hash[:12])

	cfg, err := e.Store.GetExtractionConfig(ctx, hash, RulesVersion)
	if err != nil {
		logger.Warn("extraction config lookup failed", "error", err)
	}
	if cfg != nil {
		res, err := ApplyRules(pageURL, html, cfg.ExtractRules)
		if err == nil && res.Data.Title != "" {
			logger.Info("extracted with stored config", "config_id", cfg.ID, "hit_count", cfg.HitCount)
			id := cfg.ID
			res.ConfigID = &id
			return res, nil
		}
		logger.Warn("stored config produced no title, relearning", "config_id", cfg.ID)
	}

	// Identical concurrent requests for one page share the AI call.
	v, err, _ := e.group.Do(hash+"|"+pageURL, func() (any, error) {
		res, err := e.AI.Extract(ctx, pageURL, text)
		if err != nil {
			return nil, err
		}
		if saved := e.learn(ctx, pageURL, html, patterns, hash, res); saved != nil {
			id := saved.ID
			res.ConfigID = &id
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

// learn stores a rule set for the layout. Failures are logged; the AI
// result is still used.
func (e *ConfigExtractor) learn(ctx context.Context, pageURL, html string, patterns types.MatchPatterns, hash string, res *Result) *db.ExtractionConfig {
	rules, err := LearnRules(pageURL, html, res.Data, res.CompanyName)
	if err != nil {
		slog.Warn("rule learning failed", "url", pageURL, "error", err)
		return nil
	}
	if _, ok := rules[FieldTitle]; !ok {
		slog.Debug("no title rule learned, not storing config", "url", pageURL)
		return nil
	}
	saved, err := e.Store.UpsertExtractionConfig(ctx, &db.ExtractionConfigInput{
		Name:          ConfigName(patterns),
		Version:       RulesVersion,
		MatchPatterns: patterns,
		MatchHash:     hash,
		ExtractRules:  rules,
	})
	if err != nil {
		slog.Warn("failed to store extraction config", "url", pageURL, "error", err)
		return nil
	}
	slog.Info("stored extraction config", "config_id", saved.ID, "name", saved.Name, "rules", len(rules))
	return saved
}
