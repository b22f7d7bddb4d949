// Package llm - extractor.go provides schema-driven structured extraction.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/job-ingest/internal/prompts"
	"github.com/jonathan/job-ingest/internal/schemas"
)

const promptFile = "extraction.json"

// ExtractionSchema is the natural-language field specification sent to the
// model, also compiled into a JSON Schema for response validation.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // "string", "number", "boolean", "[]string"
	Description string
	Required    bool
}

// BuildExtractionPrompt constructs the prompt from schema, source URL and
// document text.
func BuildExtractionPrompt(schema ExtractionSchema, sourceURL, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := " or null"
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString(prompts.MustGet(promptFile, "output-rules"))
	sb.WriteString("\n\n")

	if sourceURL != "" {
		sb.WriteString(prompts.Format(prompts.MustGet(promptFile, "source-url"), map[string]string{"SourceURL": sourceURL}))
		sb.WriteString("\n\n")
	}

	sb.WriteString(prompts.Format(prompts.MustGet(promptFile, "input-text"), map[string]string{"Input": inputText}))
	sb.WriteString("\n")

	return sb.String()
}

// JSONSchema compiles the field list into a JSON Schema document. Optional
// fields accept null.
func (s ExtractionSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	var required []any
	for _, f := range s.Fields {
		var prop map[string]any
		switch f.Type {
		case "number":
			prop = map[string]any{"type": nullable("number", f.Required)}
		case "boolean":
			prop = map[string]any{"type": nullable("boolean", f.Required)}
		case "[]string":
			prop = map[string]any{"type": nullable("array", f.Required), "items": map[string]any{"type": "string"}}
		default:
			prop = map[string]any{"type": nullable("string", f.Required)}
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func nullable(t string, required bool) any {
	if required {
		return t
	}
	return []any{t, "null"}
}

// Extract prompts the model, validates the JSON against the schema and
// decodes it into out. Schema violations and undecodable output come back
// as *Error with kind ErrSchemaMismatch.
func Extract(ctx context.Context, client Client, schema ExtractionSchema, sourceURL, input string, tier ModelTier, out any) error {
	prompt := BuildExtractionPrompt(schema, sourceURL, input)

	raw, err := client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return classify("", "extract "+schema.Name, err)
	}

	if err := schemas.Validate(schema.Name, schema.JSONSchema(), raw); err != nil {
		return &Error{Kind: ErrSchemaMismatch, Message: fmt.Sprintf("response does not match %s", schema.Name), Cause: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &Error{Kind: ErrSchemaMismatch, Message: fmt.Sprintf("failed to decode %s", schema.Name), Cause: err}
	}
	return nil
}

// --- Predefined Schemas ---

// JobPostingSchema returns the field specification for a job posting.
func JobPostingSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "JobPosting",
		Description: prompts.MustGet(promptFile, "job-posting"),
		Fields: []SchemaField{
			{Name: "title", Type: "string", Description: "Job title exactly as posted", Required: true},
			{Name: "company_name", Type: "string", Description: "Hiring company name"},
			{Name: "description", Type: "string", Description: "Full role description"},
			{Name: "location", Type: "string", Description: "Primary location as written"},
			{Name: "job_type", Type: "string", Description: "full-time, part-time, contract, internship"},
			{Name: "experience_level", Type: "string", Description: "entry, mid, senior, lead, executive"},
			{Name: "education_level", Type: "string", Description: "Minimum education required"},
			{Name: "salary_min", Type: "number", Description: "Lower salary bound in major currency units per year"},
			{Name: "salary_max", Type: "number", Description: "Upper salary bound in major currency units per year"},
			{Name: "salary_currency", Type: "string", Description: "ISO 4217 code"},
			{Name: "qualifications", Type: "[]string", Description: "Required qualifications"},
			{Name: "preferred_qualifications", Type: "[]string", Description: "Nice-to-have qualifications"},
			{Name: "responsibilities", Type: "[]string", Description: "Responsibilities"},
			{Name: "benefits", Type: "[]string", Description: "Benefits and perks"},
			{Name: "category", Type: "string", Description: "Department or job function"},
			{Name: "application_url", Type: "string", Description: "Absolute URL to apply"},
			{Name: "is_remote", Type: "boolean", Description: "True if the role can be done fully remotely"},
			{Name: "posted_date", Type: "string", Description: "YYYY-MM-DD"},
			{Name: "closing_date", Type: "string", Description: "YYYY-MM-DD"},
		},
	}
}

// CompanyEnrichmentSchema returns the field specification for company
// identity enrichment.
func CompanyEnrichmentSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "CompanyEnrichment",
		Description: prompts.MustGet(promptFile, "company-enrichment"),
		Fields: []SchemaField{
			{Name: "name", Type: "string", Description: "Employer name", Required: true},
			{Name: "website_url", Type: "string", Description: "Employer homepage URL"},
			{Name: "domain", Type: "string", Description: "Employer registrable domain, e.g. acme.com"},
			{Name: "jobs_url", Type: "string", Description: "Canonical careers or ATS board URL for this employer"},
			{Name: "industry", Type: "string"},
			{Name: "size", Type: "string", Description: "Employee count range"},
			{Name: "headquarters", Type: "string"},
		},
	}
}
