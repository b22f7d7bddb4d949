// Package completion scores how much of a job record was extracted.
package completion

import (
	"strings"

	"github.com/jonathan/job-ingest/internal/types"
)

// Evaluate walks the completion ladder top-down and returns the first
// matching state.
func Evaluate(d *types.ExtractedJobData) types.CompletionState {
	if d == nil || strings.TrimSpace(d.Title) == "" {
		return types.CompletionFailed
	}
	if !present(d.Description) {
		return types.CompletionMinimal
	}
	if !present(d.Location) || !present(d.ApplicationURL) {
		return types.CompletionPartial
	}
	if d.HasSalary() {
		return types.CompletionComplete
	}
	return types.CompletionSufficient
}

// AtLeast reports whether state is as good as or better than floor.
func AtLeast(state, floor types.CompletionState) bool {
	return rank(state) >= rank(floor)
}

func rank(s types.CompletionState) int {
	switch s {
	case types.CompletionComplete:
		return 4
	case types.CompletionSufficient:
		return 3
	case types.CompletionPartial:
		return 2
	case types.CompletionMinimal:
		return 1
	default:
		return 0
	}
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
