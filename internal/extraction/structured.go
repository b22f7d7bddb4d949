package extraction

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/types"
)

// StructuredExtractor reads a job straight from an ATS detail API. It never
// calls a model.
type StructuredExtractor struct {
	Greenhouse *ats.Greenhouse
	Lever      *ats.Lever
}

// NewStructuredExtractor returns an extractor backed by the connectors in
// registry.
func NewStructuredExtractor(registry ats.Registry) *StructuredExtractor {
	e := &StructuredExtractor{}
	if g, ok := registry[ats.TypeGreenhouse].(*ats.Greenhouse); ok {
		e.Greenhouse = g
	}
	if l, ok := registry[ats.TypeLever].(*ats.Lever); ok {
		e.Lever = l
	}
	return e
}

// Supports reports whether sourceType has a structured mapping.
func (e *StructuredExtractor) Supports(sourceType string) bool {
	switch sourceType {
	case ats.TypeGreenhouse:
		return e.Greenhouse != nil
	case ats.TypeLever:
		return e.Lever != nil
	default:
		return false
	}
}

// Extract fetches apiURL and maps the record for sourceType.
func (e *StructuredExtractor) Extract(ctx context.Context, sourceType, apiURL string) (*Result, error) {
	switch {
	case sourceType == ats.TypeGreenhouse && e.Greenhouse != nil:
		job, err := e.Greenhouse.Job(ctx, apiURL)
		if err != nil {
			return nil, err
		}
		return &Result{Data: MapGreenhouse(job), Method: MethodStructured}, nil
	case sourceType == ats.TypeLever && e.Lever != nil:
		p, err := e.Lever.Posting(ctx, apiURL)
		if err != nil {
			return nil, err
		}
		return &Result{Data: MapLever(p), Method: MethodStructured}, nil
	default:
		return nil, fmt.Errorf("no structured extractor for source type %q", sourceType)
	}
}

// MapGreenhouse maps a Greenhouse detail record. Content arrives
// entity-escaped; pay ranges are in cents.
func MapGreenhouse(j *ats.GreenhouseJob) types.ExtractedJobData {
	data := types.ExtractedJobData{
		Title:          strings.TrimSpace(j.Title),
		Location:       types.StringPtr(strings.TrimSpace(j.Location.Name)),
		ApplicationURL: types.StringPtr(j.AbsoluteURL),
	}
	if j.Content != "" {
		data.Description = types.StringPtr(fetch.HTMLToText(html.UnescapeString(j.Content)))
	}
	if len(j.PayInputRanges) > 0 {
		pay := j.PayInputRanges[0]
		if pay.MinCents > 0 {
			v := float64(pay.MinCents) / 100
			data.SalaryMin = &v
		}
		if pay.MaxCents > 0 {
			v := float64(pay.MaxCents) / 100
			data.SalaryMax = &v
		}
		data.SalaryCurrency = types.StringPtr(strings.ToUpper(pay.CurrencyType))
	}
	if len(j.Departments) > 0 {
		data.Category = types.StringPtr(j.Departments[0].Name)
	}
	if t, err := time.Parse(time.RFC3339, j.UpdatedAt); err == nil {
		t = t.UTC()
		data.PostedDate = &t
	}
	if data.Location != nil {
		remote := strings.Contains(strings.ToLower(*data.Location), "remote")
		data.IsRemote = &remote
	}
	return data
}

// MapLever maps a Lever posting. Titled lists are routed to
// qualifications, responsibilities, benefits or preferred qualifications
// by their heading.
func MapLever(p *ats.LeverPosting) types.ExtractedJobData {
	data := types.ExtractedJobData{
		Title:    strings.TrimSpace(p.Text),
		Location: types.StringPtr(strings.TrimSpace(p.Categories.Location)),
		JobType:  types.StringPtr(strings.TrimSpace(p.Categories.Commitment)),
		Category: types.StringPtr(strings.TrimSpace(p.Categories.Team)),
	}

	desc := strings.TrimSpace(p.DescriptionPlain)
	if desc == "" && p.Description != "" {
		desc = fetch.HTMLToText(p.Description)
	}
	if extra := strings.TrimSpace(p.AdditionalPlain); extra != "" {
		desc = strings.TrimSpace(desc + "\n\n" + extra)
	}
	data.Description = types.StringPtr(desc)

	switch {
	case p.ApplyURL != "":
		data.ApplicationURL = &p.ApplyURL
	case p.HostedURL != "":
		data.ApplicationURL = &p.HostedURL
	}

	if p.SalaryRange != nil {
		if p.SalaryRange.Min > 0 {
			v := p.SalaryRange.Min
			data.SalaryMin = &v
		}
		if p.SalaryRange.Max > 0 {
			v := p.SalaryRange.Max
			data.SalaryMax = &v
		}
		data.SalaryCurrency = types.StringPtr(strings.ToUpper(p.SalaryRange.Currency))
	}

	for _, list := range p.Lists {
		items := listItems(list.Content)
		heading := strings.ToLower(list.Text)
		switch {
		case containsAny(heading, "nice", "preferred", "bonus"):
			data.PreferredQualifications = append(data.PreferredQualifications, items...)
		case containsAny(heading, "requirement", "qualification"):
			data.Qualifications = append(data.Qualifications, items...)
		case containsAny(heading, "responsib"):
			data.Responsibilities = append(data.Responsibilities, items...)
		case containsAny(heading, "benefit", "perk"):
			data.Benefits = append(data.Benefits, items...)
		}
	}

	remote := strings.EqualFold(p.WorkplaceType, "remote")
	if !remote && data.Location != nil {
		remote = strings.Contains(strings.ToLower(*data.Location), "remote")
	}
	data.IsRemote = &remote

	if p.CreatedAt > 0 {
		t := time.UnixMilli(p.CreatedAt).UTC()
		data.PostedDate = &t
	}
	return data
}

func listItems(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var items []string
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if v := clean(s.Text()); v != "" {
			items = append(items, v)
		}
	})
	return items
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
