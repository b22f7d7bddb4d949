package fetch

import (
	"regexp"
	"strings"
)

var (
	multiSpace = regexp.MustCompile(`[ \t\p{Zs}]+`)
	blankRuns  = regexp.MustCompile(`\n\n\n+`)
)

// CleanText normalizes line endings and inline whitespace, keeps markdown
// headings and bullets, and collapses runs of blank lines to one.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}
	for _, bullet := range []string{"• ", "· ", "* "} {
		if strings.HasPrefix(trimmed, bullet) {
			trimmed = "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, bullet))
			break
		}
	}
	return multiSpace.ReplaceAllString(trimmed, " ")
}
