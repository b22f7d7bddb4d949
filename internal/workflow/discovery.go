package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/types"
)

// Workflow names
const (
	DiscoveryWorkflowName   = "discovery"
	StatusCheckWorkflowName = "status_check"
)

// Discovery step names
const (
	StepSelectSources = "select_sources"
	StepDiscover      = "discover_and_ingest"
)

// DiscoveryRequest optionally limits a run to one source by name.
type DiscoveryRequest struct {
	Source string `json:"source,omitempty"`
}

// SourceReport counts outcomes for one source. Error is set when the
// source could not be listed.
type SourceReport struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Discovered int    `json:"discovered"`
	Ingested   int    `json:"ingested"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// DiscoveryReport aggregates a discovery run.
type DiscoveryReport struct {
	Sources    []SourceReport `json:"sources"`
	Discovered int            `json:"discovered"`
	Ingested   int            `json:"ingested"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
}

func (r *DiscoveryReport) add(s SourceReport) {
	r.Sources = append(r.Sources, s)
	r.Discovered += s.Discovered
	r.Ingested += s.Ingested
	r.Skipped += s.Skipped
	r.Failed += s.Failed
}

// Connectors looks up the connector for a source type. ats.Registry
// implements it.
type Connectors interface {
	Get(sourceType string) (ats.Connector, error)
}

// Ingester runs one ingestion under a run context.
type Ingester interface {
	RunWith(ctx context.Context, req ingestion.Request, rc pipeline.RunContext) pipeline.Result[*ingestion.Output]
}

// Outcome classifies one discovered job.
type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Discovery lists every configured source and ingests what it finds.
type Discovery struct {
	Sources    []ats.Source
	Connectors Connectors
	Ingest     Ingester
	// Sleep waits between requests to one source; nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewDiscoveryPipeline builds SelectSources -> DiscoverAndIngest.
func NewDiscoveryPipeline(d *Discovery) *pipeline.Pipeline[DiscoveryRequest, *DiscoveryReport] {
	sel := pipeline.NewStep(StepSelectSources, func(_ context.Context, req DiscoveryRequest, _ pipeline.RunContext) ([]ats.Source, error) {
		return d.selectSources(req.Source)
	})
	run := pipeline.NewStep(StepDiscover, func(ctx context.Context, sources []ats.Source, rc pipeline.RunContext) (*DiscoveryReport, error) {
		report := &DiscoveryReport{}
		for _, src := range sources {
			sr, err := d.runSource(ctx, src, rc)
			report.add(sr)
			if err != nil {
				return nil, pipeline.Unexpected(StepDiscover, "discovery interrupted", err)
			}
		}
		slog.Info("discovery finished", "run_id", rc.RunID, "sources", len(report.Sources),
			"discovered", report.Discovered, "ingested", report.Ingested,
			"skipped", report.Skipped, "failed", report.Failed)
		return report, nil
	})
	return pipeline.New(DiscoveryWorkflowName, pipeline.AndThen[DiscoveryRequest, []ats.Source, *DiscoveryReport](sel, run))
}

func (d *Discovery) selectSources(name string) ([]ats.Source, error) {
	if name == "" {
		return d.Sources, nil
	}
	for _, s := range d.Sources {
		if s.Name == name {
			return []ats.Source{s}, nil
		}
	}
	return nil, pipeline.NotFound(StepSelectSources, fmt.Sprintf("source %q is not configured", name), nil)
}

// runSource lists one source and ingests each job in turn. Listing
// failures are recorded on the report; only an interrupted wait is
// returned as an error.
func (d *Discovery) runSource(ctx context.Context, src ats.Source, rc pipeline.RunContext) (SourceReport, error) {
	sr := SourceReport{Name: src.Name, Type: src.Type}
	logger := slog.Default().With("run_id", rc.RunID, "source", src.Name)

	conn, err := d.Connectors.Get(src.Type)
	if err != nil {
		sr.Error = err.Error()
		logger.Error("no connector for source", "type", src.Type, "error", err)
		return sr, nil
	}
	jobs, err := conn.List(ctx, src)
	if err != nil {
		sr.Error = err.Error()
		logger.Error("failed to list source", "error", err)
		return sr, nil
	}
	sr.Discovered = len(jobs)
	logger.Info("source listed", "jobs", len(jobs))

	for i, job := range jobs {
		if i > 0 && src.Delay() > 0 {
			if err := d.sleep(ctx, src.Delay()); err != nil {
				return sr, err
			}
		}
		outcome, detail := d.ingest(ctx, job, src, rc)
		switch outcome {
		case OutcomeIngested:
			sr.Ingested++
		case OutcomeSkipped:
			sr.Skipped++
		default:
			sr.Failed++
		}
		logger.Debug("discovered job processed", "url", job.URL, "outcome", outcome, "detail", detail)
	}
	return sr, nil
}

func (d *Discovery) ingest(ctx context.Context, job types.DiscoveredJob, src ats.Source, rc pipeline.RunContext) (Outcome, string) {
	req := ingestion.RequestFromDiscovered(job, src.CompanyName)
	child := pipeline.NewRunContext(rc.ProfileID).
		WithMetadata("parent_run_id", rc.RunID).
		WithMetadata("source", src.Name)
	res := d.Ingest.RunWith(ctx, req, child)
	return Classify(res)
}

// Classify maps an ingestion result to a discovery outcome. An existing
// job, or a failure reporting one, counts as skipped.
func Classify(res pipeline.Result[*ingestion.Output]) (Outcome, string) {
	if res.Err == nil {
		if res.Output != nil && res.Output.AlreadyExisted {
			return OutcomeSkipped, "already exists"
		}
		return OutcomeIngested, ""
	}
	msg := res.Err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "already exists") || strings.Contains(lower, "duplicate") {
		return OutcomeSkipped, msg
	}
	return OutcomeFailed, msg
}

func (d *Discovery) sleep(ctx context.Context, dur time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, dur)
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
