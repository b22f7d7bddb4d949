//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/types"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("testdata/schema.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := db.pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, _ = db.pool.Exec(ctx, "DELETE FROM jobs WHERE source_url LIKE '%test.example.com%'")
	_, _ = db.pool.Exec(ctx, "DELETE FROM companies WHERE domain LIKE '%test.example.com'")
	return db
}

func TestIntegration_CompanyLookups(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	jobsURL := "https://boards.greenhouse.io/acme-" + uuid.NewString()[:8]
	company, err := db.CreateCompany(ctx, &CompanyCreateInput{
		Name:    "Acme Test",
		Domain:  "https://www.acme.test.example.com/about",
		JobsURL: &jobsURL,
	})
	if err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}
	if company.Domain == nil || *company.Domain != "acme.test.example.com" {
		t.Errorf("Domain = %v, want normalized domain", company.Domain)
	}

	again, err := db.CreateCompany(ctx, &CompanyCreateInput{Name: "Acme Again", Domain: "acme.test.example.com"})
	if err != nil {
		t.Fatalf("second CreateCompany failed: %v", err)
	}
	if again.ID != company.ID {
		t.Errorf("duplicate domain created a second company")
	}

	byDomain, err := db.GetCompanyByDomain(ctx, "ACME.test.example.com")
	if err != nil || byDomain == nil || byDomain.ID != company.ID {
		t.Errorf("GetCompanyByDomain = %v, %v", byDomain, err)
	}

	byJobs, err := db.GetCompanyByJobsURL(ctx, jobsURL)
	if err != nil || byJobs == nil || byJobs.ID != company.ID {
		t.Errorf("GetCompanyByJobsURL = %v, %v", byJobs, err)
	}

	missing, err := db.GetCompanyByDomain(ctx, "missing.test.example.com")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing domain, got %v, %v", missing, err)
	}
}

func TestIntegration_JobLifecycle(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	desc := "Build things"
	input := &JobCreateInput{
		SourceURL:       "https://jobs.test.example.com/" + uuid.NewString(),
		Source:          "generic",
		Data:            types.ExtractedJobData{Title: "Engineer", Description: &desc},
		CompletionState: types.CompletionPartial,
	}

	job, err := db.CreateJob(ctx, input)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Title != "Engineer" || job.Status != JobStatusOpen {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.Data.Description == nil || *job.Data.Description != desc {
		t.Errorf("job data not round-tripped")
	}

	_, err = db.CreateJob(ctx, input)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second CreateJob error = %v, want ErrDuplicate", err)
	}

	found, err := db.GetJobBySourceURL(ctx, input.SourceURL)
	if err != nil || found == nil || found.ID != job.ID {
		t.Fatalf("GetJobBySourceURL = %v, %v", found, err)
	}

	entry1, err := db.UpsertStreamEntry(ctx, "profile-a", job.ID)
	if err != nil {
		t.Fatalf("UpsertStreamEntry failed: %v", err)
	}
	entry2, _ := db.UpsertStreamEntry(ctx, "profile-a", job.ID)
	if entry1.ID != entry2.ID {
		t.Errorf("stream entry not idempotent")
	}
	other, _ := db.UpsertStreamEntry(ctx, "profile-b", job.ID)
	if other.ID == entry1.ID {
		t.Errorf("different profiles should get different entries")
	}

	app, err := db.UpsertApplication(ctx, "profile-a", job.ID, ApplicationStatusSaved)
	if err != nil {
		t.Fatalf("UpsertApplication failed: %v", err)
	}
	app2, _ := db.UpsertApplication(ctx, "profile-a", job.ID, ApplicationStatusApplied)
	if app2.ID != app.ID || app2.Status != ApplicationStatusApplied {
		t.Errorf("application upsert = %+v", app2)
	}

	if err := db.MarkJobChecked(ctx, job.ID, true, time.Now()); err != nil {
		t.Fatalf("MarkJobChecked failed: %v", err)
	}
	closed, _ := db.GetJobByID(ctx, job.ID)
	if closed.Status != JobStatusClosed || closed.ClosedAt == nil {
		t.Errorf("job not closed: %+v", closed)
	}
}

func TestIntegration_ExtractionConfigUpsert(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	hash := HashContent([]byte(uuid.NewString()))
	in := &ExtractionConfigInput{
		Name:          "jobs.test.example.com",
		Version:       1,
		MatchPatterns: types.MatchPatterns{Host: "jobs.test.example.com", PathPattern: "/jobs/{id}"},
		MatchHash:     hash,
		ExtractRules:  types.ExtractRules{"title": {Selector: "h1.title"}},
	}
	created, err := db.UpsertExtractionConfig(ctx, in)
	if err != nil {
		t.Fatalf("UpsertExtractionConfig failed: %v", err)
	}

	in.ExtractRules["location"] = types.ExtractRule{Selector: ".loc"}
	updated, err := db.UpsertExtractionConfig(ctx, in)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if updated.ID != created.ID || len(updated.ExtractRules) != 2 {
		t.Errorf("upsert did not replace rules in place: %+v", updated)
	}

	got, err := db.GetExtractionConfig(ctx, hash, 1)
	if err != nil || got == nil || got.HitCount != 1 {
		t.Errorf("GetExtractionConfig = %+v, %v", got, err)
	}
	none, _ := db.GetExtractionConfig(ctx, hash, 2)
	if none != nil {
		t.Errorf("version mismatch should miss")
	}
}

func TestIntegration_RawContent(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	body := []byte("<html>" + uuid.NewString() + "</html>")
	id, err := db.StoreContent(ctx, body, "text/html", "job-pages")
	if err != nil {
		t.Fatalf("StoreContent failed: %v", err)
	}
	again, _ := db.StoreContent(ctx, body, "text/html", "job-pages")
	if again != id {
		t.Errorf("identical content stored twice")
	}
	got, err := db.RetrieveContent(ctx, id)
	if err != nil || string(got) != string(body) {
		t.Errorf("RetrieveContent = %q, %v", got, err)
	}
}
