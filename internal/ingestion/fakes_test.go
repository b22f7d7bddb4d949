package ingestion

import (
	"context"
	"sync"

	"github.com/jonathan/job-ingest/internal/company"
	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/extraction"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/types"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*fetch.Result
	errs  map[string]error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		cp := *page
		return &cp, nil
	}
	return nil, &fetch.Error{URL: url, Message: "unexpected status", StatusCode: 404}
}

type fakePages struct {
	results map[string]*extraction.Result
	err     error
	calls   int
}

func (f *fakePages) Extract(_ context.Context, pageURL, _, _ string) (*extraction.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.results[pageURL]
	if !ok {
		return &extraction.Result{Data: types.ExtractedJobData{Title: "Generic Role"}, Method: extraction.MethodAI}, nil
	}
	cp := *res
	return &cp, nil
}

type fakeResolver struct {
	company *db.Company
	err     error
	calls   int
	last    company.Input
}

func (f *fakeResolver) Resolve(_ context.Context, in company.Input) (*db.Company, *types.CompanyEnrichment, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.company, &types.CompanyEnrichment{}, nil
}

// duplicateStore makes CreateJob lose a race against a concurrent insert.
type duplicateStore struct {
	Store
}

func (duplicateStore) CreateJob(context.Context, *db.JobCreateInput) (*db.Job, error) {
	return nil, db.ErrDuplicate
}

func page(url, text string) *fetch.Result {
	return &fetch.Result{URL: url, FinalURL: url, HTML: "<html><body>" + text + "</body></html>", Text: text, StatusCode: 200}
}

func fullResult(title string) *extraction.Result {
	return &extraction.Result{
		Data: types.ExtractedJobData{
			Title:          title,
			Description:    types.StringPtr("Build reliable systems."),
			Location:       types.StringPtr("Remote, EU"),
			ApplicationURL: types.StringPtr("/apply"),
			Qualifications: []string{"- Go", "go", "  Postgres "},
		},
		CompanyName: types.StringPtr("Acme"),
		Method:      extraction.MethodAI,
	}
}
