package fetch

import (
	"net/url"
	"strings"
)

// Platform is a hosted job board whose page layout is known.
type Platform string

// Known platforms.
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformAshby      Platform = "ashby"
	PlatformWorkday    Platform = "workday"
	PlatformUnknown    Platform = "unknown"
)

// profile describes how to read pages hosted on one platform.
type profile struct {
	platform Platform
	// hosts are registrable domains; subdomains match too.
	hosts   []string
	content []string
	noise   []string
	// clientRendered pages carry no posting text in the static HTML.
	clientRendered bool
}

var profiles = []profile{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		content:  []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:    []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		content:  []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		platform:       PlatformAshby,
		hosts:          []string{"ashbyhq.com"},
		content:        []string{"[class*='descriptionText']", "main"},
		clientRendered: true,
	},
	{
		platform:       PlatformWorkday,
		hosts:          []string{"myworkdayjobs.com", "workday.com"},
		content:        []string{"[data-automation-id='jobDescription']", ".job-description", ".gwt-HTML"},
		noise:          []string{"[data-automation-id='applyButton']", ".application-section"},
		clientRendered: true,
	},
}

// commonNoise is stripped on every platform.
var commonNoise = []string{
	"form", "#application-form", ".application-form", ".apply-button-container", "[data-testid='application-form']",
	".eeo-statement", ".eeo-section", "[data-testid='eeo']", ".legal-disclosure", ".self-identification", ".voluntary-disclosure",
	".social-share", ".share-buttons",
	".cookie-banner", ".cookie-consent", ".gdpr-notice",
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func lookup(p Platform) (profile, bool) {
	for _, pr := range profiles {
		if pr.platform == p {
			return pr, true
		}
	}
	return profile{}, false
}

// DetectPlatform identifies the hosting platform of a job page.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())
	for _, pr := range profiles {
		for _, h := range pr.hosts {
			if hostMatches(host, h) {
				return pr.platform
			}
		}
	}
	return PlatformUnknown
}

// Selectors returns the content and noise selectors for a platform.
// Unknown platforms use the generic job posting selectors.
func Selectors(p Platform) (content, noise []string) {
	pr, ok := lookup(p)
	noise = append([]string(nil), commonNoise...)
	if !ok {
		return JobPostingSelectors(), noise
	}
	return pr.content, append(noise, pr.noise...)
}

// ClientRendered reports whether pages on p need a browser to show the
// posting text.
func ClientRendered(p Platform) bool {
	pr, ok := lookup(p)
	return ok && pr.clientRendered
}
