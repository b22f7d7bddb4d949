package urlnorm

import (
	"net/url"
	"strings"
)

// atsRule extracts a tenant id from the path segments of a known ATS host.
type atsRule func(segs []string) (string, bool)

// firstSegment is used by public board hosts: /{company}/...
func firstSegment(segs []string) (string, bool) {
	if len(segs) == 0 {
		return "", false
	}
	return segs[0], true
}

// prefixed requires a fixed prefix before the tenant segment.
func prefixed(prefix ...string) atsRule {
	return func(segs []string) (string, bool) {
		if len(segs) <= len(prefix) {
			return "", false
		}
		for i, p := range prefix {
			if segs[i] != p {
				return "", false
			}
		}
		return segs[len(prefix)], true
	}
}

var atsHosts = map[string]atsRule{
	"boards-api.greenhouse.io": prefixed("v1", "boards"),
	"api.greenhouse.io":        prefixed("v1", "boards"),
	"boards.greenhouse.io":     firstSegment,
	"job-boards.greenhouse.io": firstSegment,
	"api.lever.co":             prefixed("v0", "postings"),
	"jobs.lever.co":            firstSegment,
	"jobs.ashbyhq.com":         firstSegment,
}

// ExtractATSCompanyID returns the tenant (board/company) segment for a URL on
// a recognized ATS host.
func ExtractATSCompanyID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	rule, ok := atsHosts[strings.ToLower(u.Hostname())]
	if !ok {
		return "", false
	}
	id, ok := rule(pathSegments(u.Path))
	if !ok || id == "" {
		return "", false
	}
	return strings.ToLower(id), true
}

// IsATSHost reports whether the host (or any parent domain) belongs to a
// recruiting platform rather than an employer.
func IsATSHost(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(host), "www."))
	if host == "" {
		return false
	}
	for _, d := range atsDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

var atsDomains = []string{
	"greenhouse.io",
	"lever.co",
	"ashbyhq.com",
	"workday.com",
	"myworkdayjobs.com",
	"smartrecruiters.com",
	"workable.com",
	"bamboohr.com",
	"icims.com",
	"jobvite.com",
	"recruitee.com",
	"breezy.hr",
	"linkedin.com",
	"indeed.com",
}

var boardBases = map[string]string{
	"boards-api.greenhouse.io": "https://boards.greenhouse.io/",
	"api.greenhouse.io":        "https://boards.greenhouse.io/",
	"boards.greenhouse.io":     "https://boards.greenhouse.io/",
	"job-boards.greenhouse.io": "https://boards.greenhouse.io/",
	"api.lever.co":             "https://jobs.lever.co/",
	"jobs.lever.co":            "https://jobs.lever.co/",
	"jobs.ashbyhq.com":         "https://jobs.ashbyhq.com/",
}

// BoardURL returns the canonical public job board URL of the ATS tenant a
// URL belongs to, so API and public URLs of one employer agree.
func BoardURL(raw string) (string, bool) {
	id, ok := ExtractATSCompanyID(raw)
	if !ok {
		return "", false
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	return boardBases[strings.ToLower(u.Hostname())] + id, true
}
