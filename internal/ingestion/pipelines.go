// Package ingestion turns a job URL into persisted Job, stream entry and
// application records. Two pipelines share most steps: the generic one
// fetches and extracts a page, the structured one reads an ATS API.
package ingestion

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/pipeline"
)

// Pipeline names
const (
	GenericPipelineName    = "ingest_generic"
	StructuredPipelineName = "ingest_structured"
)

// Deps are the collaborators shared by the ingestion pipelines. Contents
// and Companies may be nil.
type Deps struct {
	Store     Store
	Contents  ContentStore
	Fetcher   Fetcher
	Pages     PageExtractor
	API       APIExtractor
	Companies CompanyResolver
}

// Runner runs one ingestion.
type Runner interface {
	Run(ctx context.Context, req Request, profileID string) pipeline.Result[*Output]
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// link records the per-profile side effects of an ingestion.
func link(store Store) pipeline.Step[loaded, *Output] {
	return pipeline.AndThen(loadStreamEntryStep(store), loadApplicationStep(store))
}

func hasExisting(c checked) bool { return c.existing != nil }

// NewGenericPipeline builds CheckExisting -> Fetch -> Extract -> Transform
// -> ResolveCompany -> LoadJob -> LoadStreamEntry -> LoadApplication. A
// job that already exists goes straight to LoadStreamEntry.
func NewGenericPipeline(d Deps) *pipeline.Pipeline[Request, *Output] {
	v := newValidator()
	fresh := pipeline.AndThen(fetchStep(d.Fetcher, d.Contents),
		pipeline.AndThen(extractStep(d.Pages),
			pipeline.AndThen(transformStep(v),
				pipeline.AndThen(resolveCompanyStep(d.Store, d.Companies),
					loadJobStep(d.Store, SourceWeb)))))

	root := pipeline.AndThen(checkExistingStep(d.Store, v),
		pipeline.AndThen(pipeline.Branch("existing_or_new", hasExisting, useExistingStep(), fresh),
			link(d.Store)))
	return pipeline.New(GenericPipelineName, root)
}

// NewStructuredPipeline builds the same chain with Fetch and Extract
// replaced by a single read from the ATS detail API.
func NewStructuredPipeline(d Deps) *pipeline.Pipeline[Request, *Output] {
	v := newValidator()
	fresh := pipeline.AndThen(extractAPIStep(d.API),
		pipeline.AndThen(transformStep(v),
			pipeline.AndThen(resolveCompanyStep(d.Store, d.Companies),
				loadJobStep(d.Store, ""))))

	root := pipeline.AndThen(checkExistingStep(d.Store, v),
		pipeline.AndThen(pipeline.Branch("existing_or_new", hasExisting, useExistingStep(), fresh),
			link(d.Store)))
	return pipeline.New(StructuredPipelineName, root)
}

// Router sends each request to the structured pipeline when an ATS API can
// serve it and to the generic pipeline otherwise.
type Router struct {
	Generic    *pipeline.Pipeline[Request, *Output]
	Structured *pipeline.Pipeline[Request, *Output]
	API        APIExtractor
}

// NewRouter builds both pipelines from d.
func NewRouter(d Deps) *Router {
	r := &Router{Generic: NewGenericPipeline(d), API: d.API}
	if d.API != nil {
		r.Structured = NewStructuredPipeline(d)
	}
	return r
}

// Route picks the pipeline for req, filling in the structured endpoint
// when the URL itself is a recognizable ATS job URL.
func (r *Router) Route(req Request) (*pipeline.Pipeline[Request, *Output], Request) {
	if r.Structured == nil || r.API == nil {
		return r.Generic, req
	}
	if req.APIURL != nil && r.API.Supports(req.SourceType) {
		return r.Structured, req
	}
	if sourceType, apiURL, ok := ats.StructuredEndpoint(req.URL); ok && r.API.Supports(sourceType) {
		req.SourceType = sourceType
		req.APIURL = &apiURL
		if req.Source == "" {
			req.Source = sourceType
		}
		return r.Structured, req
	}
	return r.Generic, req
}

// Run implements Runner.
func (r *Router) Run(ctx context.Context, req Request, profileID string) pipeline.Result[*Output] {
	return r.RunWith(ctx, req, pipeline.NewRunContext(profileID))
}

// RunWith routes and runs req under an existing run context.
func (r *Router) RunWith(ctx context.Context, req Request, rc pipeline.RunContext) pipeline.Result[*Output] {
	p, req := r.Route(req)
	return p.RunWith(ctx, req, rc.WithMetadata("pipeline", p.Name()))
}

// Name identifies the router in logs and workflow acknowledgements.
func (r *Router) Name() string { return "ingest" }
