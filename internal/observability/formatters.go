// Package observability renders human-readable run summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/types"
	"github.com/jonathan/job-ingest/internal/workflow"
)

const (
	// boxWidth is the width of a summary box including borders
	boxWidth = 64
	// maxItemsToShow caps list fields in job summaries
	maxItemsToShow = 5
)

// Printer writes boxed summaries.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer that writes to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a titled box; long lines are cut with an ellipsis.
//
//nolint:errcheck // terminal output
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	inner := boxWidth - 4
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// PrintIngestResult prints the outcome of one ingestion run.
func (p *Printer) PrintIngestResult(res pipeline.Result[*ingestion.Output]) {
	if res.Err != nil {
		p.PrintStepError(res.RunID, res.Err)
		return
	}
	out := res.Output
	if out == nil || out.Job == nil {
		return
	}

	var sb strings.Builder
	job := out.Job
	fmt.Fprintf(&sb, "Run:         %s (%d ms)\n", res.RunID, res.DurationMs)
	fmt.Fprintf(&sb, "Job:         %s\n", job.ID)
	fmt.Fprintf(&sb, "Source:      %s\n", job.Source)
	fmt.Fprintf(&sb, "URL:         %s\n", job.SourceURL)
	switch {
	case job.CompanyID != nil:
		fmt.Fprintf(&sb, "Company:     %s\n", job.CompanyID)
	case job.CompanyName != nil:
		fmt.Fprintf(&sb, "Company:     %s (unresolved)\n", *job.CompanyName)
	default:
		sb.WriteString("Company:     none\n")
	}
	fmt.Fprintf(&sb, "Completion:  %s\n", out.Completion)
	if out.AlreadyExisted {
		sb.WriteString("Status:      already ingested, reused\n")
	}
	if out.StreamEntry != nil {
		fmt.Fprintf(&sb, "Stream:      %s\n", out.StreamEntry.ID)
	}
	if out.Application != nil {
		fmt.Fprintf(&sb, "Application: %s (%s)\n", out.Application.ID, out.Application.Status)
	}
	sb.WriteString("\n")
	writeJobData(&sb, &job.Data)

	p.printBox("INGESTED JOB", strings.TrimSuffix(sb.String(), "\n"))
}

func writeJobData(sb *strings.Builder, d *types.ExtractedJobData) {
	fmt.Fprintf(sb, "Title:       %s\n", d.Title)
	if d.Location != nil {
		fmt.Fprintf(sb, "Location:    %s\n", *d.Location)
	}
	if d.IsRemote != nil && *d.IsRemote {
		sb.WriteString("Remote:      yes\n")
	}
	if d.HasSalary() {
		fmt.Fprintf(sb, "Salary:      %s\n", salary(d))
	}
	if d.ApplicationURL != nil {
		fmt.Fprintf(sb, "Apply:       %s\n", *d.ApplicationURL)
	}
	writeList(sb, "Qualifications", d.Qualifications)
	writeList(sb, "Responsibilities", d.Responsibilities)
	writeList(sb, "Benefits", d.Benefits)
}

func salary(d *types.ExtractedJobData) string {
	cur := types.Deref(d.SalaryCurrency)
	switch {
	case d.SalaryMin != nil && d.SalaryMax != nil:
		return strings.TrimSpace(fmt.Sprintf("%.0f - %.0f %s", *d.SalaryMin, *d.SalaryMax, cur))
	case d.SalaryMin != nil:
		return strings.TrimSpace(fmt.Sprintf("from %.0f %s", *d.SalaryMin, cur))
	default:
		return strings.TrimSpace(fmt.Sprintf("up to %.0f %s", *d.SalaryMax, cur))
	}
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", label)
	count := min(len(items), maxItemsToShow)
	for _, it := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", it)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}

// PrintStepError prints a failed run.
func (p *Printer) PrintStepError(runID string, err *pipeline.StepError) {
	if err == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:    %s\n", runID)
	fmt.Fprintf(&sb, "Step:   %s\n", err.StepName)
	fmt.Fprintf(&sb, "Kind:   %s\n", err.Kind)
	fmt.Fprintf(&sb, "Error:  %s", err.Message)
	if err.Cause != nil {
		fmt.Fprintf(&sb, "\nCause:  %s", err.Cause)
	}
	p.printBox("RUN FAILED", sb.String())
}

// PrintDiscoveryReport prints per-source and total discovery counts.
func (p *Printer) PrintDiscoveryReport(r *workflow.DiscoveryReport) {
	if r == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s %6s %6s %6s %6s\n", "SOURCE", "FOUND", "NEW", "SKIP", "FAIL")
	for _, s := range r.Sources {
		fmt.Fprintf(&sb, "%-20s %6d %6d %6d %6d\n", s.Name, s.Discovered, s.Ingested, s.Skipped, s.Failed)
		if s.Error != "" {
			fmt.Fprintf(&sb, "  ! %s\n", s.Error)
		}
	}
	fmt.Fprintf(&sb, "%-20s %6d %6d %6d %6d", "TOTAL", r.Discovered, r.Ingested, r.Skipped, r.Failed)
	p.printBox("DISCOVERY", sb.String())
}

// PrintStatusCheckReport prints the outcome of a status check run.
func (p *Printer) PrintStatusCheckReport(r *ingestion.StatusCheckReport) {
	if r == nil {
		return
	}
	p.printBox("STATUS CHECK", fmt.Sprintf("Checked: %d\nClosed:  %d\nFailed:  %d", r.Checked, r.Closed, r.Failed))
}
