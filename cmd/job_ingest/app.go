package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/company"
	"github.com/jonathan/job-ingest/internal/config"
	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/db/memdb"
	"github.com/jonathan/job-ingest/internal/extraction"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/llm"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/server"
	"github.com/jonathan/job-ingest/internal/workflow"
)

// store is everything the pipelines persist through. Both the Postgres
// and the in-memory store satisfy it.
type store interface {
	ingestion.Store
	ingestion.ContentStore
	ingestion.StatusStore
	company.Store
	extraction.ConfigStore
	server.Lookups
}

// app holds the wired components shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store

	registry    ats.Registry
	router      *ingestion.Router
	discovery   *pipeline.Pipeline[workflow.DiscoveryRequest, *workflow.DiscoveryReport]
	statusCheck *pipeline.Pipeline[ingestion.StatusCheckRequest, *ingestion.StatusCheckReport]

	closers []func() error
}

// newApp resolves configuration and wires storage, fetching, extraction
// and the pipelines.
func newApp(ctx context.Context, path string, memory bool) (*app, error) {
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	if err := a.openStore(ctx, memory); err != nil {
		_ = a.close()
		return nil, err
	}

	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		_ = a.close()
		return nil, err
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.Credentials())
	if err != nil {
		_ = a.close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	var renderer fetch.Renderer
	if cfg.UseBrowser {
		renderer = &fetch.ChromeRenderer{Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second}
	}
	fetcher := fetch.NewFetcher(cfg.FetchOptions(), renderer)

	a.registry = ats.NewRegistry(nil)
	a.router = ingestion.NewRouter(ingestion.Deps{
		Store:     a.store,
		Contents:  a.store,
		Fetcher:   fetcher,
		Pages:     extraction.NewConfigExtractor(a.store, extraction.NewAIExtractor(client)),
		API:       extraction.NewStructuredExtractor(a.registry),
		Companies: company.NewResolver(a.store, company.NewAIEnricher(client)),
	})
	a.discovery = workflow.NewDiscoveryPipeline(&workflow.Discovery{
		Sources:    cfg.Sources,
		Connectors: a.registry,
		Ingest:     a.router,
	})
	a.statusCheck = ingestion.NewStatusCheckPipeline(a.store, fetcher, nil)

	logger.Debug("application wired",
		slog.String("llm_provider", cfg.LLMProvider),
		slog.Int("sources", len(cfg.Sources)),
		slog.Bool("memory", memory),
		slog.Bool("browser", cfg.UseBrowser),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context, memory bool) error {
	if memory {
		a.store = memdb.New()
		return nil
	}
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required unless --memory is set")
	}
	database, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.store = database
	a.closers = append(a.closers, func() error {
		database.Close()
		return nil
	})
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
