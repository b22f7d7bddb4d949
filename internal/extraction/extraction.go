// Package extraction turns fetched job pages and ATS API records into
// ExtractedJobData. Three strategies share one result shape: AI
// extraction, learned rule sets matched by page layout, and fixed field
// mappings for structured ATS APIs.
package extraction

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/llm"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/types"
)

// Method records which strategy produced a result.
type Method string

// Extraction methods
const (
	MethodAI         Method = "ai"
	MethodConfig     Method = "config"
	MethodStructured Method = "structured"
)

// Result is the output of any extractor.
type Result struct {
	Data        types.ExtractedJobData
	CompanyName *string
	// ConfigID is set when a stored or newly learned rule set applies to
	// the page.
	ConfigID *uuid.UUID
	Method   Method
}

// StepError classifies an extractor error for the named step. AI
// transport failures and unreachable ATS APIs are Network errors, a
// missing ATS record is NotFound, and everything else is Transformation.
func StepError(step string, err error) *pipeline.StepError {
	if err == nil {
		return nil
	}
	var se *pipeline.StepError
	if errors.As(err, &se) {
		return se
	}
	if llm.IsKind(err, llm.ErrNetwork) {
		return pipeline.Network(step, "extraction service unreachable", err)
	}
	var atsErr *ats.Error
	if errors.As(err, &atsErr) {
		switch {
		case atsErr.NotFound():
			return pipeline.NotFound(step, "job not found in ATS", err)
		case atsErr.Transport():
			return pipeline.Network(step, "ATS API unreachable", err)
		}
	}
	return pipeline.Transformation(step, "extraction failed", err)
}
