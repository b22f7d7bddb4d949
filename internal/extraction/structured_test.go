package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-ingest/internal/ats"
)

func TestMapGreenhouse(t *testing.T) {
	job := &ats.GreenhouseJob{
		ID:          123,
		Title:       "Site Reliability Engineer",
		AbsoluteURL: "https://boards.greenhouse.io/acme/jobs/123",
		UpdatedAt:   "2024-02-10T09:30:00-05:00",
		Content:     "&lt;p&gt;Keep things &amp;amp; running.&lt;/p&gt;&lt;ul&gt;&lt;li&gt;On-call&lt;/li&gt;&lt;/ul&gt;",
		Location:    ats.GreenhouseLocation{Name: "Remote (US)"},
		Departments: []ats.GreenhouseNamed{{Name: "Infrastructure"}},
		PayInputRanges: []ats.GreenhousePayRange{
			{MinCents: 15000000, MaxCents: 19550050, CurrencyType: "usd"},
		},
	}
	data := MapGreenhouse(job)

	assert.Equal(t, "Site Reliability Engineer", data.Title)
	assert.Equal(t, "Keep things & running.\n- On-call", *data.Description)
	assert.Equal(t, 150000.0, *data.SalaryMin)
	assert.Equal(t, 195500.5, *data.SalaryMax)
	assert.Equal(t, "USD", *data.SalaryCurrency)
	assert.Equal(t, "Infrastructure", *data.Category)
	assert.Equal(t, job.AbsoluteURL, *data.ApplicationURL)
	assert.True(t, *data.IsRemote)
	assert.Equal(t, "2024-02-10T14:30:00Z", data.PostedDate.Format("2006-01-02T15:04:05Z07:00"))
}

func TestMapGreenhouse_Sparse(t *testing.T) {
	data := MapGreenhouse(&ats.GreenhouseJob{Title: "SWE", Location: ats.GreenhouseLocation{Name: "Austin, TX"}})
	assert.Nil(t, data.Description)
	assert.Nil(t, data.SalaryMin)
	assert.Nil(t, data.ApplicationURL)
	assert.Nil(t, data.PostedDate)
	assert.False(t, *data.IsRemote)
}

func TestMapLever(t *testing.T) {
	p := &ats.LeverPosting{
		Text:             "Product Designer",
		HostedURL:        "https://jobs.lever.co/acme/abc",
		ApplyURL:         "https://jobs.lever.co/acme/abc/apply",
		DescriptionPlain: "Design things.",
		AdditionalPlain:  "We are an equal opportunity employer.",
		Categories:       ats.LeverCategories{Location: "Berlin", Commitment: "Full-time", Team: "Design"},
		Lists: []ats.LeverList{
			{Text: "Requirements", Content: "<li>Figma</li><li>Taste</li>"},
			{Text: "What you'll do (responsibilities)", Content: "<li>Ship</li>"},
			{Text: "Nice to have qualifications", Content: "<li>Code</li>"},
			{Text: "Perks", Content: "<li>Bikes</li>"},
			{Text: "About us", Content: "<li>ignored</li>"},
		},
		WorkplaceType: "remote",
		CreatedAt:     1700000000000,
		SalaryRange:   &ats.LeverSalary{Min: 70000, Max: 90000, Currency: "eur"},
	}
	data := MapLever(p)

	assert.Equal(t, "Product Designer", data.Title)
	assert.Equal(t, "Design things.\n\nWe are an equal opportunity employer.", *data.Description)
	assert.Equal(t, "Full-time", *data.JobType)
	assert.Equal(t, "Design", *data.Category)
	assert.Equal(t, p.ApplyURL, *data.ApplicationURL)
	assert.Equal(t, []string{"Figma", "Taste"}, data.Qualifications)
	assert.Equal(t, []string{"Ship"}, data.Responsibilities)
	assert.Equal(t, []string{"Code"}, data.PreferredQualifications)
	assert.Equal(t, []string{"Bikes"}, data.Benefits)
	assert.True(t, *data.IsRemote)
	assert.Equal(t, 70000.0, *data.SalaryMin)
	assert.Equal(t, "EUR", *data.SalaryCurrency)
	assert.Equal(t, int64(1700000000), data.PostedDate.Unix())
}

func TestMapLever_HostedURLFallback(t *testing.T) {
	data := MapLever(&ats.LeverPosting{Text: "X", HostedURL: "https://jobs.lever.co/acme/x", Description: "<p>Hello</p>"})
	assert.Equal(t, "https://jobs.lever.co/acme/x", *data.ApplicationURL)
	assert.Equal(t, "Hello", *data.Description)
	assert.False(t, *data.IsRemote)
}

func TestStructuredExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/boards/acme/jobs/123":
			_, _ = w.Write([]byte(`{"id":123,"title":"SRE","absolute_url":"https://boards.greenhouse.io/acme/jobs/123"}`))
		case "/v0/postings/acme/abc":
			_, _ = w.Write([]byte(`{"id":"abc","text":"Designer"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	registry := ats.NewRegistry(srv.Client())
	registry[ats.TypeGreenhouse].(*ats.Greenhouse).BaseURL = srv.URL
	registry[ats.TypeLever].(*ats.Lever).BaseURL = srv.URL
	e := NewStructuredExtractor(registry)

	assert.True(t, e.Supports(ats.TypeGreenhouse))
	assert.False(t, e.Supports("workday"))

	res, err := e.Extract(context.Background(), ats.TypeGreenhouse, "https://boards-api.greenhouse.io/v1/boards/acme/jobs/123?pay_transparency=true")
	require.NoError(t, err)
	assert.Equal(t, MethodStructured, res.Method)
	assert.Equal(t, "SRE", res.Data.Title)

	res, err = e.Extract(context.Background(), ats.TypeLever, "https://api.lever.co/v0/postings/acme/abc")
	require.NoError(t, err)
	assert.Equal(t, "Designer", res.Data.Title)

	_, err = e.Extract(context.Background(), ats.TypeGreenhouse, "https://boards-api.greenhouse.io/v1/boards/acme/jobs/999")
	assert.Equal(t, "not_found", string(StepError("extract", err).Kind))

	_, err = e.Extract(context.Background(), "workday", "https://x")
	assert.Error(t, err)
}
