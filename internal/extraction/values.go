package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	moneyAmount  = regexp.MustCompile(`(?i)(US\$|CA\$|A\$|[$€£¥₹])?\s?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)(\s?k\b)?`)
	currencyMark = regexp.MustCompile(`US\$|CA\$|A\$|[$€£¥₹]|\b(?:USD|EUR|GBP|CAD|AUD|JPY|INR|CHF)\b`)
	remoteWord   = regexp.MustCompile(`(?i)\bremote\b`)
	notRemote    = regexp.MustCompile(`(?i)\b(?:non|not)[\s-]remote\b`)
	dateText     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b|\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{4}\b`)
)

var currencySymbols = map[string]string{
	"$": "USD", "US$": "USD", "CA$": "CAD", "A$": "AUD",
	"€": "EUR", "£": "GBP", "¥": "JPY", "₹": "INR",
}

var textDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006", "Jan 2, 2006", "January 2 2006", "Jan 2 2006",
	"2 January 2006", "2 Jan 2006",
}

// parseSalary reads a salary range out of text. One amount fills both
// bounds. Bare numbers below 1000 and bare years are skipped.
func parseSalary(text string) (lo, hi *float64, currency *string) {
	var amounts []float64
	for _, m := range moneyAmount.FindAllStringSubmatch(text, -1) {
		symbol, digits, thousands := m[1], m[2], strings.TrimSpace(m[3]) != ""
		v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
		if err != nil {
			continue
		}
		if thousands {
			v *= 1000
		}
		if symbol == "" && !thousands {
			if v < 1000 || (!strings.Contains(digits, ",") && v >= 1900 && v <= 2100) {
				continue
			}
		}
		amounts = append(amounts, v)
		if len(amounts) == 2 {
			break
		}
	}
	if len(amounts) == 0 {
		return nil, nil, nil
	}
	low, high := amounts[0], amounts[0]
	if len(amounts) == 2 {
		high = amounts[1]
	}
	if mark := currencyMark.FindString(text); mark != "" {
		code, ok := currencySymbols[mark]
		if !ok {
			code = mark
		}
		currency = &code
	}
	return &low, &high, currency
}

func sameAmount(want, got *float64) bool {
	if want == nil {
		return true
	}
	return got != nil && math.Abs(*want-*got) < 0.5
}

// mentionsRemote reports whether text describes a remote position.
func mentionsRemote(text string) bool {
	return remoteWord.MatchString(notRemote.ReplaceAllString(text, ""))
}

// parseDateText returns the first recognizable date in text.
func parseDateText(text string) *time.Time {
	for _, m := range dateText.FindAllString(text, -1) {
		v := strings.Join(strings.Fields(strings.ReplaceAll(m, ".", "")), " ")
		v = strings.Replace(v, "Sept ", "Sep ", 1)
		for _, layout := range textDateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func sameDay(want, got *time.Time) bool {
	if want == nil || got == nil {
		return false
	}
	wy, wm, wd := want.UTC().Date()
	gy, gm, gd := got.UTC().Date()
	return wy == gy && wm == gm && wd == gd
}
