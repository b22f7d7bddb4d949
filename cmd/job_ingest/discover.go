package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-ingest/internal/observability"
	"github.com/jonathan/job-ingest/internal/workflow"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover and ingest jobs from configured ATS sources",
	RunE:  runDiscover,
}

var (
	discoverSource  string
	discoverProfile string
)

func init() {
	discoverCmd.Flags().StringVarP(&discoverSource, "source", "s", "", "Only run the named source")
	discoverCmd.Flags().StringVarP(&discoverProfile, "profile", "p", "", "Profile to run as")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath, useMemory)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	res := a.discovery.Run(ctx, workflow.DiscoveryRequest{Source: discoverSource}, discoverProfile)
	p := observability.NewPrinter(os.Stdout)
	if !res.OK() {
		p.PrintStepError(res.RunID, res.Err)
		return res.Err
	}
	p.PrintDiscoveryReport(res.Output)
	return nil
}
