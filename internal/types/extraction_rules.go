package types

// MatchPatterns is the structural signature of a page layout.
type MatchPatterns struct {
	Host        string   `json:"host"`
	PathPattern string   `json:"path_pattern"`
	DOMMarkers  []string `json:"dom_markers"`
}

// ExtractRule locates one field in a page.
type ExtractRule struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
	Multiple bool   `json:"multiple,omitempty"`
	// Value is used when Selector is empty or matches nothing.
	Value string `json:"value,omitempty"`
}

// ExtractRules maps ExtractedJobData JSON field names to rules. The
// "salary" rule fills both bounds and "company_name" carries the employer.
type ExtractRules map[string]ExtractRule
