package company

import (
	"context"
	"strings"

	"github.com/jonathan/job-ingest/internal/llm"
	"github.com/jonathan/job-ingest/internal/types"
)

const maxEnrichChars = 12000

// AIEnricher asks a model who the employer is.
type AIEnricher struct {
	Client llm.Client
	Tier   llm.ModelTier
}

// NewAIEnricher returns an enricher on the lite tier.
func NewAIEnricher(client llm.Client) *AIEnricher {
	return &AIEnricher{Client: client, Tier: llm.TierLite}
}

// Enrich implements Enricher.
func (e *AIEnricher) Enrich(ctx context.Context, in Input) (*types.CompanyEnrichment, error) {
	var sb strings.Builder
	if in.NameHint != "" {
		sb.WriteString("Company name as shown on the posting: ")
		sb.WriteString(in.NameHint)
		sb.WriteString("\n\n")
	}
	content := in.Content
	if len(content) > maxEnrichChars {
		content = strings.ToValidUTF8(content[:maxEnrichChars], "")
	}
	sb.WriteString(content)

	var out types.CompanyEnrichment
	if err := llm.Extract(ctx, e.Client, llm.CompanyEnrichmentSchema(), in.SourceURL, sb.String(), e.Tier, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
