package extraction

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/types"
)

const anchorChars = 60

var cssIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z_-]*$`)

// LearnRules locates each value of data in the page and records a CSS
// selector for it. Values that cannot be found get no rule, except the
// company name and salary currency, which fall back to a constant.
func LearnRules(pageURL, html string, data types.ExtractedJobData, companyName *string) (types.ExtractRules, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	candidates := doc.Find("body *")

	rules := types.ExtractRules{}
	if sel := learnText(doc, candidates, data.Title); sel != "" {
		rules[FieldTitle] = types.ExtractRule{Selector: sel}
	}
	for field, ptr := range textFields {
		if v := *ptr(&data); v != nil {
			if sel := learnText(doc, candidates, *v); sel != "" {
				rules[field] = types.ExtractRule{Selector: sel}
			}
		}
	}
	if data.Description != nil {
		if sel := learnBlock(doc, candidates, *data.Description); sel != "" {
			rules[FieldDescription] = types.ExtractRule{Selector: sel}
		}
	}
	if data.ApplicationURL != nil {
		if sel := learnLink(doc, pageURL, *data.ApplicationURL); sel != "" {
			rules[FieldApplicationURL] = types.ExtractRule{Selector: sel, Attr: "href"}
		}
	}
	for field, ptr := range listFields {
		if items := *ptr(&data); len(items) > 0 {
			if sel := learnList(doc, items); sel != "" {
				rules[field] = types.ExtractRule{Selector: sel, Multiple: true}
			}
		}
	}
	for field, ptr := range dateFields {
		if want := *ptr(&data); want != nil {
			if sel := learnShort(doc, candidates, func(text string) bool { return sameDay(want, parseDateText(text)) }); sel != "" {
				rules[field] = types.ExtractRule{Selector: sel}
			}
		}
	}
	learnSalary(doc, candidates, data, rules)
	if data.IsRemote != nil {
		if sel := learnRemote(doc, candidates, *data.IsRemote, rules["location"].Selector); sel != "" {
			rules[FieldIsRemote] = types.ExtractRule{Selector: sel}
		}
	}
	if companyName != nil && strings.TrimSpace(*companyName) != "" {
		rules[FieldCompanyName] = learnCompany(doc, candidates, strings.TrimSpace(*companyName))
	}
	return rules, nil
}

// maxValueText bounds the text of an element that holds a single value
// such as a salary or a date.
const maxValueText = 160

// learnShort finds the deepest element with short text that satisfies ok.
func learnShort(doc *goquery.Document, candidates *goquery.Selection, ok func(text string) bool) string {
	match := func(s *goquery.Selection) bool {
		text := clean(s.Text())
		return len(text) <= maxValueText && ok(text)
	}
	var best *goquery.Selection
	bestDepth := -1
	candidates.Each(func(_ int, s *goquery.Selection) {
		if !match(s) {
			return
		}
		if depth := s.Parents().Length(); depth > bestDepth {
			best, bestDepth = s, depth
		}
	})
	if best == nil {
		return ""
	}
	return verified(doc, selectorFor(best), match)
}

// learnSalary records the element whose text parses to the extracted
// bounds. A currency the text does not show is kept as a constant.
func learnSalary(doc *goquery.Document, candidates *goquery.Selection, data types.ExtractedJobData, rules types.ExtractRules) {
	if !data.HasSalary() {
		return
	}
	sel := learnShort(doc, candidates, func(text string) bool {
		lo, hi, _ := parseSalary(text)
		return sameAmount(data.SalaryMin, lo) && sameAmount(data.SalaryMax, hi)
	})
	if sel == "" {
		return
	}
	rules[FieldSalary] = types.ExtractRule{Selector: sel}
	if data.SalaryCurrency == nil {
		return
	}
	_, _, cur := parseSalary(clean(doc.Find(sel).First().Text()))
	if cur == nil || !strings.EqualFold(*cur, *data.SalaryCurrency) {
		rules[FieldSalaryCurrency] = types.ExtractRule{Value: strings.ToUpper(*data.SalaryCurrency)}
	}
}

// learnRemote prefers the location element when its wording agrees with
// the remote flag; otherwise a short element mentioning remote work.
func learnRemote(doc *goquery.Document, candidates *goquery.Selection, remote bool, locationSel string) string {
	if locationSel != "" {
		if m := doc.Find(locationSel).First(); m.Length() > 0 && mentionsRemote(m.Text()) == remote {
			return locationSel
		}
	}
	if !remote {
		return ""
	}
	return learnShort(doc, candidates, mentionsRemote)
}

const siteNameMeta = `meta[property="og:site_name"]`

func learnCompany(doc *goquery.Document, candidates *goquery.Selection, name string) types.ExtractRule {
	if sel := learnText(doc, candidates, name); sel != "" {
		return types.ExtractRule{Selector: sel}
	}
	if normText(doc.Find(siteNameMeta).AttrOr("content", "")) == normText(name) {
		return types.ExtractRule{Selector: siteNameMeta, Attr: "content"}
	}
	return types.ExtractRule{Value: name}
}

// learnText finds the deepest element whose whole text equals value.
func learnText(doc *goquery.Document, candidates *goquery.Selection, value string) string {
	target := normText(value)
	if target == "" {
		return ""
	}
	var best *goquery.Selection
	bestDepth := -1
	candidates.Each(func(_ int, s *goquery.Selection) {
		if normText(s.Text()) != target {
			return
		}
		if depth := s.Parents().Length(); depth > bestDepth {
			best, bestDepth = s, depth
		}
	})
	if best == nil {
		return ""
	}
	return verified(doc, selectorFor(best), func(s *goquery.Selection) bool {
		return normText(s.Text()) == target
	})
}

// learnBlock finds the deepest element containing both the start and the
// end of a long text. When the text was paraphrased it falls back to the
// first job content container present on the page.
func learnBlock(doc *goquery.Document, candidates *goquery.Selection, value string) string {
	target := normText(value)
	if target != "" {
		head, tail := target, target
		if len(target) > anchorChars {
			head, tail = target[:anchorChars], target[len(target)-anchorChars:]
		}
		var best *goquery.Selection
		bestDepth := -1
		candidates.Each(func(_ int, s *goquery.Selection) {
			text := normText(s.Text())
			if !strings.Contains(text, head) || !strings.Contains(text, tail) {
				return
			}
			if depth := s.Parents().Length(); depth > bestDepth {
				best, bestDepth = s, depth
			}
		})
		if best != nil {
			return selectorFor(best)
		}
	}
	for _, sel := range fetch.JobPostingSelectors() {
		if doc.Find(sel).Length() > 0 {
			return sel
		}
	}
	return ""
}

func learnLink(doc *goquery.Document, pageURL, value string) string {
	want := strings.TrimSuffix(strings.TrimSpace(value), "/")
	var found *goquery.Selection
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.TrimSuffix(resolveURL(pageURL, href), "/") == want {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return ""
	}
	return selectorFor(found)
}

// learnList picks the list whose items overlap most with items; at least
// half of them must match.
func learnList(doc *goquery.Document, items []string) string {
	want := make(map[string]struct{}, len(items))
	for _, it := range items {
		want[normText(it)] = struct{}{}
	}
	need := (len(items) + 1) / 2

	var best *goquery.Selection
	bestHits := 0
	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		hits := 0
		list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if _, ok := want[normText(li.Text())]; ok {
				hits++
			}
		})
		if hits > bestHits {
			best, bestHits = list, hits
		}
	})
	if best == nil || bestHits < need {
		return ""
	}
	return selectorFor(best) + " > li"
}

// verified returns sel if its first match satisfies ok.
func verified(doc *goquery.Document, sel string, ok func(*goquery.Selection) bool) string {
	if m := doc.Find(sel).First(); m.Length() > 0 && ok(m) {
		return sel
	}
	return ""
}

// selectorFor builds a child-combinator path from the nearest element with
// a stable id, or from body.
func selectorFor(s *goquery.Selection) string {
	var parts []string
	anchored := false
	for n := s; n.Length() > 0; n = n.Parent() {
		tag := goquery.NodeName(n)
		if tag == "body" || tag == "html" {
			break
		}
		if id, ok := n.Attr("id"); ok && stableToken(id) && cssIdent.MatchString(id) {
			parts = append(parts, tag+"#"+id)
			anchored = true
			break
		}
		part := tag
		if class, ok := n.Attr("class"); ok {
			kept := 0
			for _, c := range strings.Fields(class) {
				if kept == 2 {
					break
				}
				if stableToken(c) && cssIdent.MatchString(c) {
					part += "." + c
					kept++
				}
			}
		}
		if n.SiblingsFiltered(part).Length() > 0 {
			part += fmt.Sprintf(":nth-of-type(%d)", n.PrevAllFiltered(tag).Length()+1)
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	if !anchored {
		parts = append([]string{"body"}, parts...)
	}
	return strings.Join(parts, " > ")
}

func resolveURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
