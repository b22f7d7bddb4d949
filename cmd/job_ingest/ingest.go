package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/observability"
	"github.com/jonathan/job-ingest/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single job posting URL",
	Long:  "Fetch a job posting, extract its fields, resolve the employer and store the job.",
	RunE:  runIngest,
}

var (
	ingestURL         string
	ingestProfile     string
	ingestCompanyID   string
	ingestCompanyName string
	ingestStream      bool
	ingestStatus      string
	ingestSourceType  string
	ingestAPIURL      string
	ingestJSON        bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestURL, "url", "u", "", "Job posting URL (required)")
	ingestCmd.Flags().StringVarP(&ingestProfile, "profile", "p", "", "Profile to link the job to")
	ingestCmd.Flags().StringVar(&ingestCompanyID, "company-id", "", "Known company ID")
	ingestCmd.Flags().StringVar(&ingestCompanyName, "company-name", "", "Company name hint")
	ingestCmd.Flags().BoolVar(&ingestStream, "stream", false, "Add the job to the profile's stream")
	ingestCmd.Flags().StringVar(&ingestStatus, "status", "", "Record an application with this status")
	ingestCmd.Flags().StringVar(&ingestSourceType, "source-type", "", "ATS type for structured extraction (greenhouse, lever)")
	ingestCmd.Flags().StringVar(&ingestAPIURL, "api-url", "", "ATS detail API URL")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the result as JSON")

	_ = ingestCmd.MarkFlagRequired("url")
	ingestCmd.MarkFlagsRequiredTogether("source-type", "api-url")

	rootCmd.AddCommand(ingestCmd)
}

// ingestJSONResult is the --json rendering of a run.
type ingestJSONResult struct {
	RunID      string            `json:"run_id"`
	DurationMs int64             `json:"duration_ms"`
	Output     *ingestion.Output `json:"output,omitempty"`
	Error      *ingestJSONError  `json:"error,omitempty"`
}

type ingestJSONError struct {
	Kind    pipeline.ErrorKind `json:"kind"`
	Step    string             `json:"step"`
	Message string             `json:"message"`
	Cause   string             `json:"cause,omitempty"`
}

func newIngestJSON(res pipeline.Result[*ingestion.Output]) ingestJSONResult {
	out := ingestJSONResult{RunID: res.RunID, DurationMs: res.DurationMs, Output: res.Output}
	if res.Err != nil {
		out.Error = &ingestJSONError{Kind: res.Err.Kind, Step: res.Err.StepName, Message: res.Err.Message}
		if res.Err.Cause != nil {
			out.Error.Cause = res.Err.Cause.Error()
		}
	}
	return out
}

// buildIngestRequest maps command flags onto a pipeline request.
func buildIngestRequest() (ingestion.Request, error) {
	req := ingestion.Request{
		URL:               ingestURL,
		AddToStream:       ingestStream,
		ApplicationStatus: ingestStatus,
		SourceType:        ingestSourceType,
		Source:            "cli",
	}
	if ingestCompanyID != "" {
		id, err := uuid.Parse(ingestCompanyID)
		if err != nil {
			return req, fmt.Errorf("invalid --company-id: %w", err)
		}
		req.CompanyID = &id
	}
	if ingestCompanyName != "" {
		req.CompanyName = &ingestCompanyName
	}
	if ingestAPIURL != "" {
		req.APIURL = &ingestAPIURL
	}
	return req, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	req, err := buildIngestRequest()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, configPath, useMemory)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	res := a.router.Run(ctx, req, ingestProfile)

	if ingestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newIngestJSON(res)); err != nil {
			return err
		}
	} else {
		observability.NewPrinter(os.Stdout).PrintIngestResult(res)
	}
	if !res.OK() {
		return res.Err
	}
	return nil
}
