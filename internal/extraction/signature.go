package extraction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-ingest/internal/types"
)

// MaxDOMMarkers caps the markers kept in a signature.
const MaxDOMMarkers = 40

var (
	numericSeg = regexp.MustCompile(`^\d+$`)
	uuidSeg    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hexSeg     = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	idSuffix   = regexp.MustCompile(`[-_]\d{4,}$`)
	hasDigit   = regexp.MustCompile(`\d`)
)

// ComputeSignature derives the layout signature of a page: host, path
// shape, and the class and id markers used inside <body>.
func ComputeSignature(pageURL, html string) (types.MatchPatterns, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return types.MatchPatterns{}, fmt.Errorf("parse page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.MatchPatterns{}, fmt.Errorf("parse HTML: %w", err)
	}
	return types.MatchPatterns{
		Host:        strings.ToLower(u.Hostname()),
		PathPattern: PathPattern(u.Path),
		DOMMarkers:  domMarkers(doc),
	}, nil
}

// PathPattern replaces the per-posting segments of a path with
// placeholders: ids become {id} and long hyphenated slugs become {slug}.
func PathPattern(p string) string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		switch {
		case numericSeg.MatchString(seg), uuidSeg.MatchString(seg), hexSeg.MatchString(seg), idSuffix.MatchString(seg):
			out = append(out, "{id}")
		case strings.Count(seg, "-") >= 2:
			out = append(out, "{slug}")
		default:
			out = append(out, strings.ToLower(seg))
		}
	}
	return "/" + strings.Join(out, "/")
}

func domMarkers(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	doc.Find("body *").Not("script, style, noscript, svg, svg *").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if id, ok := s.Attr("id"); ok && stableToken(id) {
			seen[tag+"#"+id] = struct{}{}
		}
		if class, ok := s.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				if stableToken(c) {
					seen[tag+"."+c] = struct{}{}
				}
			}
		}
	})
	markers := make([]string, 0, len(seen))
	for m := range seen {
		markers = append(markers, m)
	}
	sort.Strings(markers)
	if len(markers) > MaxDOMMarkers {
		markers = markers[:MaxDOMMarkers]
	}
	return markers
}

// stableToken rejects generated class names and ids, which tend to carry
// digits and differ between otherwise identical pages.
func stableToken(s string) bool {
	return s != "" && len(s) <= 40 && !hasDigit.MatchString(s)
}

// MatchHash is the hex SHA-256 of the canonical JSON form of p.
func MatchHash(p types.MatchPatterns) string {
	if p.DOMMarkers == nil {
		p.DOMMarkers = []string{}
	}
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ConfigName labels a rule set for humans.
func ConfigName(p types.MatchPatterns) string {
	return p.Host + p.PathPattern
}
