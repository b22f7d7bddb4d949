package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/observability"
)

var checkStatusCmd = &cobra.Command{
	Use:   "check-status",
	Short: "Re-check open jobs and close the ones that are gone",
	RunE:  runCheckStatus,
}

var checkStatusLimit int

func init() {
	checkStatusCmd.Flags().IntVarP(&checkStatusLimit, "limit", "n", ingestion.DefaultStatusCheckLimit, "Maximum number of jobs to check")
	rootCmd.AddCommand(checkStatusCmd)
}

func runCheckStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath, useMemory)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	res := a.statusCheck.Run(ctx, ingestion.StatusCheckRequest{Limit: checkStatusLimit}, "")
	p := observability.NewPrinter(os.Stdout)
	if !res.OK() {
		p.PrintStepError(res.RunID, res.Err)
		return res.Err
	}
	p.PrintStatusCheckReport(res.Output)
	return nil
}
