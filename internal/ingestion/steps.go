package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/company"
	"github.com/jonathan/job-ingest/internal/completion"
	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/extraction"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/types"
	"github.com/jonathan/job-ingest/internal/urlnorm"
)

// Step names
const (
	StepCheckExisting   = "check_existing"
	StepUseExisting     = "use_existing"
	StepFetch           = "fetch"
	StepExtract         = "extract"
	StepExtractAPI      = "extract_structured"
	StepTransform       = "transform"
	StepResolveCompany  = "resolve_company"
	StepLoadJob         = "load_job"
	StepLoadStreamEntry = "load_stream_entry"
	StepLoadApplication = "load_application"
)

// Bucket and content type used for archived pages.
const (
	RawContentBucket = "job-pages"
	RawContentType   = "text/html"
)

// Default Job.Source values.
const (
	SourceWeb = "web"
)

// checked is the output of CheckExisting.
type checked struct {
	req       Request
	sourceURL string
	existing  *db.Job
}

// fetched carries a fetched page.
type fetched struct {
	checked
	page         *fetch.Result
	rawContentID *uuid.UUID
}

// extracted carries raw extraction output and the text used for company
// enrichment.
type extracted struct {
	checked
	content      string
	rawContentID *uuid.UUID
	result       *extraction.Result
}

// transformed carries the cleaned record and its completion state.
type transformed struct {
	extracted
	data       types.ExtractedJobData
	completion types.CompletionState
}

// resolved carries the employer, if any.
type resolved struct {
	transformed
	company *db.Company
}

// loaded is a persisted job, new or existing.
type loaded struct {
	req            Request
	job            *db.Job
	alreadyExisted bool
}

// linked adds the stream entry.
type linked struct {
	loaded
	stream *db.StreamEntry
}

func checkExistingStep(store Store, validate *validator.Validate) pipeline.Step[Request, checked] {
	return pipeline.NewStep(StepCheckExisting, func(ctx context.Context, req Request, _ pipeline.RunContext) (checked, error) {
		req.URL = strings.TrimSpace(req.URL)
		if err := validate.Struct(req); err != nil {
			return checked{}, pipeline.Validation(StepCheckExisting, "invalid ingestion request", err)
		}
		sourceURL := urlnorm.Normalize(req.URL)
		existing, err := store.GetJobBySourceURL(ctx, sourceURL)
		if err != nil {
			return checked{}, pipeline.Load(StepCheckExisting, "job lookup failed", err)
		}
		if existing != nil {
			slog.Info("job already exists, skipping extraction", "job_id", existing.ID, "source_url", sourceURL)
		}
		return checked{req: req, sourceURL: sourceURL, existing: existing}, nil
	})
}

func useExistingStep() pipeline.Step[checked, loaded] {
	return pipeline.NewStep(StepUseExisting, func(_ context.Context, in checked, _ pipeline.RunContext) (loaded, error) {
		return loaded{req: in.req, job: in.existing, alreadyExisted: true}, nil
	})
}

func fetchStep(fetcher Fetcher, contents ContentStore) pipeline.Step[checked, fetched] {
	return pipeline.NewStep(StepFetch, func(ctx context.Context, in checked, _ pipeline.RunContext) (fetched, error) {
		page, err := fetcher.Fetch(ctx, in.req.URL)
		if err != nil {
			return fetched{}, fetchError(StepFetch, err)
		}
		if strings.TrimSpace(page.Text) == "" {
			return fetched{}, pipeline.Extraction(StepFetch, "page has no readable content", nil)
		}
		out := fetched{checked: in, page: page}
		if contents != nil {
			id, err := contents.StoreContent(ctx, []byte(page.HTML), RawContentType, RawContentBucket)
			if err != nil {
				slog.Warn("failed to archive page, continuing", "url", in.req.URL, "error", err)
			} else {
				out.rawContentID = &id
			}
		}
		return out, nil
	})
}

// fetchError classifies a page fetch failure.
func fetchError(step string, err error) *pipeline.StepError {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return pipeline.Network(step, "fetch failed", err)
	}
	switch {
	case fe.Permanent():
		return pipeline.NotFound(step, fmt.Sprintf("page unavailable (status %d)", fe.StatusCode), err)
	case fe.StatusCode != 0:
		return pipeline.Extraction(step, fmt.Sprintf("unexpected status %d", fe.StatusCode), err)
	case fe.Message == "invalid URL":
		return pipeline.Validation(step, "invalid URL", err)
	default:
		return pipeline.Network(step, "fetch failed", err)
	}
}

func extractStep(pages PageExtractor) pipeline.Step[fetched, extracted] {
	return pipeline.NewStep(StepExtract, func(ctx context.Context, in fetched, _ pipeline.RunContext) (extracted, error) {
		pageURL := in.page.FinalURL
		if pageURL == "" {
			pageURL = in.req.URL
		}
		res, err := pages.Extract(ctx, pageURL, in.page.HTML, in.page.Text)
		if err != nil {
			return extracted{}, extraction.StepError(StepExtract, err)
		}
		return extracted{checked: in.checked, content: in.page.Text, rawContentID: in.rawContentID, result: res}, nil
	})
}

func extractAPIStep(api APIExtractor) pipeline.Step[checked, extracted] {
	return pipeline.NewStep(StepExtractAPI, func(ctx context.Context, in checked, _ pipeline.RunContext) (extracted, error) {
		if in.req.APIURL == nil || !api.Supports(in.req.SourceType) {
			return extracted{}, pipeline.Validation(StepExtractAPI, "request has no structured endpoint", nil)
		}
		res, err := api.Extract(ctx, in.req.SourceType, *in.req.APIURL)
		if err != nil {
			return extracted{}, extraction.StepError(StepExtractAPI, err)
		}
		return extracted{checked: in, content: types.Deref(res.Data.Description), result: res}, nil
	})
}

func transformStep(validate *validator.Validate) pipeline.Step[extracted, transformed] {
	return pipeline.NewStep(StepTransform, func(_ context.Context, in extracted, _ pipeline.RunContext) (transformed, error) {
		data := Normalize(in.result.Data, in.req.URL)
		state := completion.Evaluate(&data)
		if state == types.CompletionFailed {
			return transformed{}, pipeline.Validation(StepTransform, "extracted job has no title", nil)
		}
		if err := validate.Struct(data); err != nil {
			return transformed{}, pipeline.Validation(StepTransform, "extracted job failed validation", err)
		}
		return transformed{extracted: in, data: data, completion: state}, nil
	})
}

func resolveCompanyStep(store Store, resolver CompanyResolver) pipeline.Step[transformed, resolved] {
	return pipeline.NewStep(StepResolveCompany, func(ctx context.Context, in transformed, _ pipeline.RunContext) (resolved, error) {
		out := resolved{transformed: in}
		if in.req.CompanyID != nil {
			c, err := store.GetCompanyByID(ctx, *in.req.CompanyID)
			if err != nil {
				return resolved{}, pipeline.Load(StepResolveCompany, "company lookup failed", err)
			}
			if c == nil {
				return resolved{}, pipeline.NotFound(StepResolveCompany, fmt.Sprintf("company %s not found", *in.req.CompanyID), nil)
			}
			out.company = c
			return out, nil
		}
		if resolver == nil {
			return out, nil
		}

		c, _, err := resolver.Resolve(ctx, company.Input{
			NameHint:  companyNameHint(in),
			SourceURL: in.req.URL,
			Content:   in.content,
		})
		var enrichErr *company.EnrichmentError
		switch {
		case errors.As(err, &enrichErr):
			slog.Warn("company enrichment failed, storing job without company", "url", in.req.URL, "error", err)
		case err != nil:
			return resolved{}, pipeline.Load(StepResolveCompany, "company resolution failed", err)
		default:
			out.company = c
		}
		return out, nil
	})
}

func companyNameHint(in transformed) string {
	if in.req.CompanyName != nil {
		return *in.req.CompanyName
	}
	return types.Deref(in.result.CompanyName)
}

func loadJobStep(store Store, defaultSource string) pipeline.Step[resolved, loaded] {
	return pipeline.NewStep(StepLoadJob, func(ctx context.Context, in resolved, _ pipeline.RunContext) (loaded, error) {
		source := in.req.Source
		if source == "" {
			source = defaultSource
		}
		input := &db.JobCreateInput{
			SourceURL:          in.sourceURL,
			Source:             source,
			Data:               in.data,
			CompletionState:    in.completion,
			RawContentID:       in.rawContentID,
			ExtractionConfigID: in.result.ConfigID,
		}
		switch {
		case in.company != nil:
			input.CompanyID = &in.company.ID
		case in.req.CompanyID == nil:
			input.CompanyName = types.StringPtr(companyNameHint(in.transformed))
		}

		job, err := store.CreateJob(ctx, input)
		if errors.Is(err, db.ErrDuplicate) {
			return loaded{}, pipeline.Load(StepLoadJob, "job already exists (duplicate source url)", err)
		}
		if err != nil {
			return loaded{}, pipeline.Load(StepLoadJob, "failed to store job", err)
		}
		slog.Info("job stored", "job_id", job.ID, "title", job.Title, "completion", job.CompletionState,
			"method", in.result.Method, "company_id", job.CompanyID)
		return loaded{req: in.req, job: job}, nil
	})
}

func loadStreamEntryStep(store Store) pipeline.Step[loaded, linked] {
	return pipeline.NewStep(StepLoadStreamEntry, func(ctx context.Context, in loaded, rc pipeline.RunContext) (linked, error) {
		out := linked{loaded: in}
		if !in.req.AddToStream {
			return out, nil
		}
		entry, err := store.UpsertStreamEntry(ctx, rc.ProfileID, in.job.ID)
		if err != nil {
			return linked{}, pipeline.Load(StepLoadStreamEntry, "failed to add job to stream", err)
		}
		out.stream = entry
		return out, nil
	})
}

func loadApplicationStep(store Store) pipeline.Step[linked, *Output] {
	return pipeline.NewStep(StepLoadApplication, func(ctx context.Context, in linked, rc pipeline.RunContext) (*Output, error) {
		out := &Output{
			Job:            in.job,
			StreamEntry:    in.stream,
			AlreadyExisted: in.alreadyExisted,
			Completion:     in.job.CompletionState,
		}
		if in.req.ApplicationStatus == "" {
			return out, nil
		}
		app, err := store.UpsertApplication(ctx, rc.ProfileID, in.job.ID, in.req.ApplicationStatus)
		if err != nil {
			return nil, pipeline.Load(StepLoadApplication, "failed to record application", err)
		}
		out.Application = app
		return out, nil
	})
}

// Normalize cleans an extracted record: trims and de-duplicates list
// items, resolves a relative application URL against the page URL, drops
// values that cannot be valid, and infers remote from the location.
func Normalize(d types.ExtractedJobData, pageURL string) types.ExtractedJobData {
	d.Title = strings.Join(strings.Fields(d.Title), " ")
	d.Qualifications = cleanList(d.Qualifications)
	d.PreferredQualifications = cleanList(d.PreferredQualifications)
	d.Responsibilities = cleanList(d.Responsibilities)
	d.Benefits = cleanList(d.Benefits)

	if d.ApplicationURL != nil {
		d.ApplicationURL = absoluteHTTPURL(*d.ApplicationURL, pageURL)
	}

	if d.SalaryMin != nil && *d.SalaryMin <= 0 {
		d.SalaryMin = nil
	}
	if d.SalaryMax != nil && *d.SalaryMax <= 0 {
		d.SalaryMax = nil
	}
	if d.SalaryMin != nil && d.SalaryMax != nil && *d.SalaryMin > *d.SalaryMax {
		d.SalaryMin, d.SalaryMax = d.SalaryMax, d.SalaryMin
	}
	if d.SalaryCurrency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*d.SalaryCurrency))
		if len(cur) != 3 {
			cur = ""
		}
		d.SalaryCurrency = types.StringPtr(cur)
	}

	if d.IsRemote == nil && d.Location != nil && strings.Contains(strings.ToLower(*d.Location), "remote") {
		remote := true
		d.IsRemote = &remote
	}
	return d
}

func cleanList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.Join(strings.Fields(strings.TrimLeft(it, "-•*· ")), " ")
		if it == "" {
			continue
		}
		key := strings.ToLower(it)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func absoluteHTTPURL(raw, base string) *string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return nil
		}
		ref = b.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return nil
	}
	s := ref.String()
	return &s
}
