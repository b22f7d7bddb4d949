package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	Reset()

	p, err := Get("extraction.json", "job-posting")
	require.NoError(t, err)
	assert.Contains(t, p, "job posting parser")
}

func TestGet_Errors(t *testing.T) {
	Reset()

	_, err := Get("missing.json", "job-posting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")

	_, err = Get("extraction.json", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() { MustGet("extraction.json", "missing") })
	assert.NotPanics(t, func() { MustGet("extraction.json", "output-rules") })
}

func TestFormat(t *testing.T) {
	out := Format("Source URL: {{.SourceURL}} ({{.SourceURL}})", map[string]string{"SourceURL": "https://acme.com"})
	assert.Equal(t, "Source URL: https://acme.com (https://acme.com)", out)

	// values are inserted verbatim
	out = Format("{{.A}}|{{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "{{.B}}|b", out)

	assert.Equal(t, "{{.X}}", Format("{{.X}}", nil))
}

func TestKeys(t *testing.T) {
	keys, err := Keys("extraction.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"company-enrichment", "input-text", "job-posting", "output-rules", "source-url"}, keys)
}
