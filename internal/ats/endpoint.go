package ats

import (
	"net/url"
	"strings"
)

// StructuredEndpoint maps a job URL to the ATS detail API that serves the
// same job as typed JSON. Both API URLs and public board URLs are
// recognized; public URLs are rewritten to the API form.
func StructuredEndpoint(rawURL string) (sourceType, apiURL string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	segs := splitPath(u.Path)

	switch host {
	case "boards-api.greenhouse.io", "api.greenhouse.io":
		// /v1/boards/{board}/jobs/{id}
		if len(segs) >= 5 && segs[0] == "v1" && segs[1] == "boards" && segs[3] == "jobs" && isDigits(segs[4]) {
			return TypeGreenhouse, greenhouseDetail(segs[2], segs[4]), true
		}
	case "boards.greenhouse.io", "job-boards.greenhouse.io":
		// /{board}/jobs/{id}
		if len(segs) >= 3 && segs[1] == "jobs" && isDigits(segs[2]) {
			return TypeGreenhouse, greenhouseDetail(segs[0], segs[2]), true
		}
	case "api.lever.co":
		// /v0/postings/{company}/{id}
		if len(segs) >= 4 && segs[0] == "v0" && segs[1] == "postings" {
			return TypeLever, LeverPostingURL(LeverAPIBase, segs[2], segs[3]), true
		}
	case "jobs.lever.co":
		// /{company}/{id}[/apply]
		if len(segs) >= 2 {
			return TypeLever, LeverPostingURL(LeverAPIBase, segs[0], segs[1]), true
		}
	}
	return "", "", false
}

func greenhouseDetail(board, id string) string {
	return GreenhouseAPIBase + "/v1/boards/" + url.PathEscape(board) + "/jobs/" + id + "?pay_transparency=true"
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
