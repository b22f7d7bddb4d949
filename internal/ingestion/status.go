package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/pipeline"
)

// StatusCheckPipelineName names the status check pipeline.
const StatusCheckPipelineName = "status_check"

// DefaultStatusCheckLimit bounds one status check run.
const DefaultStatusCheckLimit = 100

// StatusCheckRequest selects how many open jobs to check.
type StatusCheckRequest struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}

// StatusCheckReport summarizes a status check run.
type StatusCheckReport struct {
	Checked int `json:"checked"`
	Closed  int `json:"closed"`
	Failed  int `json:"failed"`
}

// NewStatusCheckPipeline builds a pipeline that re-fetches open jobs,
// least recently checked first, and closes those whose pages are gone.
// Other failures are counted and the job stays open.
func NewStatusCheckPipeline(store StatusStore, fetcher Fetcher, now func() time.Time) *pipeline.Pipeline[StatusCheckRequest, *StatusCheckReport] {
	if now == nil {
		now = time.Now
	}
	v := newValidator()

	list := pipeline.NewStep("list_open_jobs", func(ctx context.Context, req StatusCheckRequest, _ pipeline.RunContext) ([]db.Job, error) {
		if err := v.Struct(req); err != nil {
			return nil, pipeline.Validation("list_open_jobs", "invalid status check request", err)
		}
		limit := req.Limit
		if limit == 0 {
			limit = DefaultStatusCheckLimit
		}
		jobs, err := store.ListOpenJobs(ctx, limit)
		if err != nil {
			return nil, pipeline.Load("list_open_jobs", "failed to list open jobs", err)
		}
		return jobs, nil
	})

	check := pipeline.NewStep("check_jobs", func(ctx context.Context, jobs []db.Job, _ pipeline.RunContext) (*StatusCheckReport, error) {
		report := &StatusCheckReport{}
		for _, job := range jobs {
			report.Checked++
			closed, err := pageGone(ctx, fetcher, job.SourceURL)
			if err != nil {
				report.Failed++
				slog.Warn("status check failed", "job_id", job.ID, "url", job.SourceURL, "error", err)
				continue
			}
			if err := store.MarkJobChecked(ctx, job.ID, closed, now()); err != nil {
				return report, pipeline.Load("check_jobs", "failed to update job status", err)
			}
			if closed {
				report.Closed++
				slog.Info("job closed", "job_id", job.ID, "url", job.SourceURL)
			}
		}
		return report, nil
	})

	return pipeline.New(StatusCheckPipelineName, pipeline.AndThen[StatusCheckRequest, []db.Job, *StatusCheckReport](list, check))
}

// pageGone reports whether the page is permanently unavailable. Errors
// mean the status could not be determined.
func pageGone(ctx context.Context, fetcher Fetcher, url string) (bool, error) {
	_, err := fetcher.Fetch(ctx, url)
	if err == nil {
		return false, nil
	}
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.Permanent() {
		return true, nil
	}
	return false, err
}
