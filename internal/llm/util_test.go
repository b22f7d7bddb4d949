package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"title\": \"SRE\"}\n```", `{"title": "SRE"}`},
		{"bare fence", "```\n{\"title\": \"SRE\"}\n```", `{"title": "SRE"}`},
		{"plain", `{"title": "SRE"}`, `{"title": "SRE"}`},
		{"preamble", "Here is the extracted posting:\n{\"title\": \"SRE\"}", `{"title": "SRE"}`},
		{"trailing chatter", "{\"title\": \"SRE\"}\n\nLet me know!", `{"title": "SRE"}`},
		{"array preamble", "Items:\n[\"a\", \"b\"]", `["a", "b"]`},
		{"object containing array", "Result: {\"benefits\": [\"401k\"]}", `{"benefits": ["401k"]}`},
		{"escaped quotes", `Out: {"description": "say \"hi\" {now}"}`, `{"description": "say \"hi\" {now}"}`},
		{"no json", "sorry, I cannot help", "sorry, I cannot help"},
		{"unbalanced", `{"title": "SRE"`, `{"title": "SRE"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, `{"t": "x}y"}`, extractJSONObject(`{"t": "x}y"}`))
	assert.Equal(t, "", extractJSONObject(""))
	assert.Equal(t, "", extractJSONObject("nope"))
}

func TestExtractJSONArray(t *testing.T) {
	assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`[[1, 2], [3]] rest`))
	assert.Equal(t, `[{"id": 1}]`, extractJSONArray(`[{"id": 1}]`))
	assert.Equal(t, "", extractJSONArray("{}"))
}
