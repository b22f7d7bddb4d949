package ats

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonathan/job-ingest/internal/types"
)

// LeverAPIBase is the public Lever postings API.
const LeverAPIBase = "https://api.lever.co"

// LeverJobsBase hosts the public posting pages.
const LeverJobsBase = "https://jobs.lever.co"

// LeverPosting is a posting from the Lever postings API.
type LeverPosting struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	HostedURL        string          `json:"hostedUrl"`
	ApplyURL         string          `json:"applyUrl"`
	Description      string          `json:"description"`
	DescriptionPlain string          `json:"descriptionPlain"`
	AdditionalPlain  string          `json:"additionalPlain"`
	Categories       LeverCategories `json:"categories"`
	Lists            []LeverList     `json:"lists"`
	WorkplaceType    string          `json:"workplaceType"`
	CreatedAt        int64           `json:"createdAt"`
	SalaryRange      *LeverSalary    `json:"salaryRange,omitempty"`
	Country          string          `json:"country"`
}

// LeverCategories holds the posting's categorization.
type LeverCategories struct {
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	AllLocations []string `json:"allLocations"`
}

// LeverList is a titled section whose Content is an HTML list.
type LeverList struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

// LeverSalary is a salary range in major currency units.
type LeverSalary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

// Lever talks to the Lever postings API.
type Lever struct {
	// BaseURL overrides LeverAPIBase, mainly for tests.
	BaseURL string
	HTTP    *http.Client
}

// NewLever returns a client using client, or a default one when nil.
func NewLever(client *http.Client) *Lever {
	return &Lever{HTTP: newHTTPClient(client)}
}

// Type implements Connector.
func (l *Lever) Type() string { return TypeLever }

func (l *Lever) base(override string) string {
	switch {
	case override != "":
		return override
	case l.BaseURL != "":
		return l.BaseURL
	default:
		return LeverAPIBase
	}
}

// LeverPostingURL builds the detail endpoint for a posting.
func LeverPostingURL(base, company, id string) string {
	if base == "" {
		base = LeverAPIBase
	}
	return fmt.Sprintf("%s/v0/postings/%s/%s", base, url.PathEscape(company), url.PathEscape(id))
}

// ListPostings returns every published posting for a company.
func (l *Lever) ListPostings(ctx context.Context, company, baseURL string) ([]LeverPosting, error) {
	endpoint := fmt.Sprintf("%s/v0/postings/%s?mode=json", l.base(baseURL), url.PathEscape(company))
	var postings []LeverPosting
	if err := getJSON(ctx, newHTTPClient(l.HTTP), endpoint, &postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// Posting fetches one posting from its detail endpoint.
func (l *Lever) Posting(ctx context.Context, apiURL string) (*LeverPosting, error) {
	target, err := rebase(apiURL, LeverAPIBase, l.BaseURL)
	if err != nil {
		return nil, &Error{URL: apiURL, Message: "invalid API URL", Cause: err}
	}
	var p LeverPosting
	if err := getJSON(ctx, newHTTPClient(l.HTTP), target, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LeverPageURL returns the URL a posting is keyed on: its hosted page, or
// the canonical jobs.lever.co page when the hosted URL does not carry the id.
func LeverPageURL(company string, p LeverPosting) string {
	canonical := fmt.Sprintf("%s/%s/%s", LeverJobsBase, url.PathEscape(company), url.PathEscape(p.ID))
	if p.HostedURL == "" {
		return canonical
	}
	u, err := url.Parse(p.HostedURL)
	if err != nil || !pathHasSegment(u.Path, p.ID) {
		return canonical
	}
	return p.HostedURL
}

// List implements Connector.
func (l *Lever) List(ctx context.Context, src Source) ([]types.DiscoveredJob, error) {
	postings, err := l.ListPostings(ctx, src.Board, src.BaseURL)
	if err != nil {
		return nil, err
	}
	out := make([]types.DiscoveredJob, 0, len(postings))
	for _, p := range postings {
		apiURL := LeverPostingURL(src.BaseURL, src.Board, p.ID)
		pageURL := LeverPageURL(src.Board, p)
		out = append(out, types.DiscoveredJob{
			URL:       pageURL,
			Source:    TypeLever,
			CompanyID: src.CompanyID,
			APIURL:    &apiURL,
			Metadata: map[string]string{
				"source_name": src.Name,
				"board":       src.Board,
				"job_id":      p.ID,
				"title":       p.Text,
			},
		})
	}
	return out, nil
}
