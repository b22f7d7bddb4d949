// Package main provides the job-ingest command line and HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	useMemory  bool
)

var rootCmd = &cobra.Command{
	Use:   "job_ingest",
	Short: "Job posting ingestion service",
	Long: "job_ingest fetches job postings, extracts structured data with learned rules, " +
		"ATS APIs or an LLM, resolves the employer and stores the result.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Use an in-memory store instead of Postgres")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
