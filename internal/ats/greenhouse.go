package ats

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/job-ingest/internal/types"
)

// GreenhouseAPIBase is the public Greenhouse job board API.
const GreenhouseAPIBase = "https://boards-api.greenhouse.io"

// GreenhouseBoardBase hosts the public job pages.
const GreenhouseBoardBase = "https://boards.greenhouse.io"

// GreenhouseJob is a job record from the Greenhouse job board API. List
// responses omit Content and PayInputRanges.
type GreenhouseJob struct {
	ID             int64                 `json:"id"`
	Title          string                `json:"title"`
	AbsoluteURL    string                `json:"absolute_url"`
	UpdatedAt      string                `json:"updated_at"`
	Content        string                `json:"content"`
	Location       GreenhouseLocation    `json:"location"`
	Departments    []GreenhouseNamed     `json:"departments"`
	Offices        []GreenhouseNamed     `json:"offices"`
	PayInputRanges []GreenhousePayRange  `json:"pay_input_ranges"`
	Metadata       []GreenhouseMetaField `json:"metadata"`
}

// GreenhouseLocation is the job location block.
type GreenhouseLocation struct {
	Name string `json:"name"`
}

// GreenhouseNamed is a department or office.
type GreenhouseNamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GreenhousePayRange is a pay transparency range in minor currency units.
type GreenhousePayRange struct {
	MinCents     int64  `json:"min_cents"`
	MaxCents     int64  `json:"max_cents"`
	CurrencyType string `json:"currency_type"`
	Title        string `json:"title"`
}

// GreenhouseMetaField is a custom field attached to a job.
type GreenhouseMetaField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type greenhouseList struct {
	Jobs []GreenhouseJob `json:"jobs"`
}

// Greenhouse talks to the Greenhouse job board API.
type Greenhouse struct {
	// BaseURL overrides GreenhouseAPIBase, mainly for tests.
	BaseURL string
	HTTP    *http.Client
}

// NewGreenhouse returns a client using client, or a default one when nil.
func NewGreenhouse(client *http.Client) *Greenhouse {
	return &Greenhouse{HTTP: newHTTPClient(client)}
}

// Type implements Connector.
func (g *Greenhouse) Type() string { return TypeGreenhouse }

func (g *Greenhouse) base(override string) string {
	switch {
	case override != "":
		return override
	case g.BaseURL != "":
		return g.BaseURL
	default:
		return GreenhouseAPIBase
	}
}

// GreenhouseJobURL builds the detail endpoint for a job.
func GreenhouseJobURL(base, board string, id int64) string {
	if base == "" {
		base = GreenhouseAPIBase
	}
	return fmt.Sprintf("%s/v1/boards/%s/jobs/%d?pay_transparency=true", base, url.PathEscape(board), id)
}

// ListJobs returns every job on a board.
func (g *Greenhouse) ListJobs(ctx context.Context, board, baseURL string) ([]GreenhouseJob, error) {
	endpoint := fmt.Sprintf("%s/v1/boards/%s/jobs", g.base(baseURL), url.PathEscape(board))
	var list greenhouseList
	if err := getJSON(ctx, newHTTPClient(g.HTTP), endpoint, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

// Job fetches one job from its detail endpoint.
func (g *Greenhouse) Job(ctx context.Context, apiURL string) (*GreenhouseJob, error) {
	target, err := rebase(apiURL, GreenhouseAPIBase, g.BaseURL)
	if err != nil {
		return nil, &Error{URL: apiURL, Message: "invalid API URL", Cause: err}
	}
	var job GreenhouseJob
	if err := getJSON(ctx, newHTTPClient(g.HTTP), target, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GreenhousePageURL returns the URL a job is keyed on. Boards embedded in
// an employer site often report one careers page for every job with the id
// in the query (?gh_jid=N); those fall back to the canonical board page.
func GreenhousePageURL(board string, j GreenhouseJob) string {
	id := strconv.FormatInt(j.ID, 10)
	canonical := fmt.Sprintf("%s/%s/jobs/%s", GreenhouseBoardBase, url.PathEscape(board), id)
	if j.AbsoluteURL == "" {
		return canonical
	}
	u, err := url.Parse(j.AbsoluteURL)
	if err != nil || !pathHasSegment(u.Path, id) {
		return canonical
	}
	return j.AbsoluteURL
}

func pathHasSegment(path, seg string) bool {
	for _, s := range strings.Split(path, "/") {
		if s == seg {
			return true
		}
	}
	return false
}

// List implements Connector. Detail URLs use the source's base URL when it
// has one, otherwise the public API host.
func (g *Greenhouse) List(ctx context.Context, src Source) ([]types.DiscoveredJob, error) {
	jobs, err := g.ListJobs(ctx, src.Board, src.BaseURL)
	if err != nil {
		return nil, err
	}
	out := make([]types.DiscoveredJob, 0, len(jobs))
	for _, j := range jobs {
		apiURL := GreenhouseJobURL(src.BaseURL, src.Board, j.ID)
		pageURL := GreenhousePageURL(src.Board, j)
		out = append(out, types.DiscoveredJob{
			URL:       pageURL,
			Source:    TypeGreenhouse,
			CompanyID: src.CompanyID,
			APIURL:    &apiURL,
			Metadata: map[string]string{
				"source_name": src.Name,
				"board":       src.Board,
				"job_id":      strconv.FormatInt(j.ID, 10),
				"title":       j.Title,
			},
		})
	}
	return out, nil
}
