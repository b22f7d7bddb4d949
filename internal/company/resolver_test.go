package company

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/db/memdb"
	"github.com/jonathan/job-ingest/internal/llm"
	"github.com/jonathan/job-ingest/internal/types"
)

type stubEnricher struct {
	out   *types.CompanyEnrichment
	err   error
	calls int
}

func (s *stubEnricher) Enrich(context.Context, Input) (*types.CompanyEnrichment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.out
	return &cp, nil
}

func TestResolve_CreatesOnlyWithDomain(t *testing.T) {
	ctx := context.Background()
	store := memdb.New()

	r := NewResolver(store, &stubEnricher{out: &types.CompanyEnrichment{Name: "Acme", WebsiteURL: types.StringPtr("https://www.acme.com/about")}})
	c, e, err := r.Resolve(ctx, Input{SourceURL: "https://acme.com/careers/1"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "acme.com", *c.Domain)
	assert.Equal(t, "acme.com", *e.Domain)

	again, _, err := r.Resolve(ctx, Input{SourceURL: "https://acme.com/careers/2"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	companies, _, _, _, _ := store.Counts()
	assert.Equal(t, 1, companies)
}

func TestResolve_NoDomainIsOrphan(t *testing.T) {
	store := memdb.New()
	r := NewResolver(store, &stubEnricher{out: &types.CompanyEnrichment{Name: "Stealth Startup"}})

	c, _, err := r.Resolve(context.Background(), Input{SourceURL: "https://example.org/post/1"})
	require.NoError(t, err)
	assert.Nil(t, c)
	companies, _, _, _, _ := store.Counts()
	assert.Equal(t, 0, companies)
}

func TestResolve_RejectsATSDomain(t *testing.T) {
	store := memdb.New()
	r := NewResolver(store, &stubEnricher{out: &types.CompanyEnrichment{
		Name:       "Acme",
		Domain:     types.StringPtr("boards.greenhouse.io"),
		WebsiteURL: types.StringPtr("https://boards.greenhouse.io/acme"),
	}})

	c, e, err := r.Resolve(context.Background(), Input{SourceURL: "https://boards.greenhouse.io/acme/jobs/1"})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, e.Domain)
	assert.Nil(t, e.WebsiteURL)
	assert.Equal(t, "https://boards.greenhouse.io/acme", *e.JobsURL)
}

func TestMatch_DomainBeatsJobsURL(t *testing.T) {
	ctx := context.Background()
	store := memdb.New()
	board := "https://boards.greenhouse.io/acme"

	byBoard, err := store.CreateCompany(ctx, &db.CompanyCreateInput{Name: "Acme Old", Domain: "acme-old.com", JobsURL: &board})
	require.NoError(t, err)
	byDomain, err := store.CreateCompany(ctx, &db.CompanyCreateInput{Name: "Acme", Domain: "acme.com"})
	require.NoError(t, err)

	r := NewResolver(store, nil)
	c, err := r.Match(ctx, &types.CompanyEnrichment{Name: "Acme", Domain: types.StringPtr("acme.com"), JobsURL: &board})
	require.NoError(t, err)
	assert.Equal(t, byDomain.ID, c.ID)

	c, err = r.Match(ctx, &types.CompanyEnrichment{Name: "Acme", JobsURL: &board})
	require.NoError(t, err)
	assert.Equal(t, byBoard.ID, c.ID)

	c, err = r.Match(ctx, &types.CompanyEnrichment{Name: "Acme", Domain: types.StringPtr("new.com"), JobsURL: &board})
	require.NoError(t, err)
	assert.Equal(t, byBoard.ID, c.ID, "jobs url match is preferred over creating")
}

func TestResolve_EnrichmentError(t *testing.T) {
	enricher := &stubEnricher{err: &llm.Error{Kind: llm.ErrNetwork, Message: "down"}}
	r := NewResolver(memdb.New(), enricher)
	_, _, err := r.Resolve(context.Background(), Input{})
	var enrichErr *EnrichmentError
	require.True(t, errors.As(err, &enrichErr))
	assert.True(t, llm.IsKind(err, llm.ErrNetwork))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name        string
		in          types.CompanyEnrichment
		sourceURL   string
		wantName    string
		wantDomain  *string
		wantJobsURL *string
	}{
		{
			name:       "schemeless website",
			in:         types.CompanyEnrichment{Name: " Acme ", WebsiteURL: types.StringPtr("acme.io")},
			wantName:   "Acme",
			wantDomain: types.StringPtr("acme.io"),
		},
		{
			name:        "jobs url canonicalized",
			in:          types.CompanyEnrichment{Name: "Acme", JobsURL: types.StringPtr("https://job-boards.greenhouse.io/Acme/jobs/1")},
			wantName:    "Acme",
			wantJobsURL: types.StringPtr("https://boards.greenhouse.io/acme"),
		},
		{
			name:        "own careers page kept",
			in:          types.CompanyEnrichment{Name: "Acme", Domain: types.StringPtr("Acme.com"), JobsURL: types.StringPtr("https://acme.com/careers/?ref=x")},
			wantName:    "Acme",
			wantDomain:  types.StringPtr("acme.com"),
			wantJobsURL: types.StringPtr("https://acme.com/careers"),
		},
		{
			name:        "name hint and board from source",
			in:          types.CompanyEnrichment{Domain: types.StringPtr("localhost")},
			sourceURL:   "https://jobs.lever.co/acme/123",
			wantName:    "Hint Co",
			wantJobsURL: types.StringPtr("https://jobs.lever.co/acme"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(&tt.in, Input{NameHint: "Hint Co", SourceURL: tt.sourceURL})
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantDomain, got.Domain)
			assert.Equal(t, tt.wantJobsURL, got.JobsURL)
		})
	}
}

type fakeLLM struct{ reply string }

func (f *fakeLLM) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return f.reply, nil
}
func (f *fakeLLM) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return f.reply, nil
}
func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }

func TestAIEnricher(t *testing.T) {
	e := NewAIEnricher(&fakeLLM{reply: `{"name":"Acme","website_url":"https://acme.com","domain":null,"industry":"Robotics"}`})
	out, err := e.Enrich(context.Background(), Input{NameHint: "Acme", Content: "We are Acme."})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Name)
	assert.Equal(t, "https://acme.com", *out.WebsiteURL)
	assert.Nil(t, out.Domain)
	assert.Equal(t, "Robotics", *out.Industry)

	_, err = NewAIEnricher(&fakeLLM{reply: `{"industry":"x"}`}).Enrich(context.Background(), Input{Content: "x"})
	assert.True(t, errors.As(err, new(*llm.Error)))
}
