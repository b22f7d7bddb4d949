package extraction

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/types"
)

// ApplyRules extracts fields from a page with a stored rule set. Rules
// that match nothing leave their field empty; the caller decides whether
// the result is usable.
func ApplyRules(pageURL, html string, rules types.ExtractRules) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	res := &Result{Method: MethodConfig}
	data := &res.Data
	for field, rule := range rules {
		if rule.Selector == "" {
			continue
		}
		sel := doc.Find(rule.Selector)
		if sel.Length() == 0 {
			continue
		}
		switch {
		case field == FieldTitle:
			data.Title = clean(sel.First().Text())
		case field == FieldDescription:
			inner, _ := sel.First().Html()
			data.Description = types.StringPtr(fetch.HTMLToText(inner))
		case field == FieldApplicationURL:
			if href, ok := sel.First().Attr(attrOr(rule.Attr, "href")); ok && strings.TrimSpace(href) != "" {
				data.ApplicationURL = types.StringPtr(resolveURL(pageURL, href))
			}
		case textFields[field] != nil:
			*textFields[field](data) = types.StringPtr(clean(sel.First().Text()))
		case dateFields[field] != nil:
			*dateFields[field](data) = parseDateText(clean(sel.First().Text()))
		case field == FieldSalary:
			data.SalaryMin, data.SalaryMax, data.SalaryCurrency = parseSalary(clean(sel.First().Text()))
		case field == FieldIsRemote:
			remote := mentionsRemote(sel.First().Text())
			data.IsRemote = &remote
		case listFields[field] != nil:
			var items []string
			sel.Each(func(_ int, s *goquery.Selection) {
				if v := clean(s.Text()); v != "" {
					items = append(items, v)
				}
			})
			*listFields[field](data) = items
		}
	}
	if rule, ok := rules[FieldSalaryCurrency]; ok && rule.Value != "" && data.HasSalary() {
		data.SalaryCurrency = types.StringPtr(rule.Value)
	}
	if rule, ok := rules[FieldCompanyName]; ok {
		res.CompanyName = ruleValue(doc, rule)
	}
	return res, nil
}

// ruleValue reads a single value through rule, falling back to its
// constant.
func ruleValue(doc *goquery.Document, rule types.ExtractRule) *string {
	if rule.Selector != "" {
		if s := doc.Find(rule.Selector).First(); s.Length() > 0 {
			v := s.Text()
			if rule.Attr != "" {
				v = s.AttrOr(rule.Attr, "")
			}
			if v = clean(v); v != "" {
				return &v
			}
		}
	}
	if rule.Value != "" {
		return types.StringPtr(rule.Value)
	}
	return nil
}

func attrOr(attr, def string) string {
	if attr == "" {
		return def
	}
	return attr
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
