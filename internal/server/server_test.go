package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-ingest/internal/config"
	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/db/memdb"
	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/server/ratelimit"
	"github.com/jonathan/job-ingest/internal/types"
	"github.com/jonathan/job-ingest/internal/workflow"
)

type fakeIngester struct {
	result  pipeline.Result[*ingestion.Output]
	req     ingestion.Request
	profile string
}

func (f *fakeIngester) Run(_ context.Context, req ingestion.Request, profileID string) pipeline.Result[*ingestion.Output] {
	f.req = req
	f.profile = profileID
	return f.result
}

// nopRunner lets tests build real workflows that are never started.
type nopRunner[I any] struct{}

func (nopRunner[I]) Name() string { return "nop" }

func (nopRunner[I]) RunWith(_ context.Context, _ I, rc pipeline.RunContext) pipeline.Result[struct{}] {
	return pipeline.Result[struct{}]{RunID: rc.RunID}
}

type fixture struct {
	srv       *Server
	ingest    *fakeIngester
	store     *memdb.Store
	discovery *workflow.Workflow[workflow.DiscoveryRequest, struct{}]
	status    *workflow.Workflow[ingestion.StatusCheckRequest, struct{}]
	jwt       *JWTService
}

func newFixture(t *testing.T, withAuth bool) *fixture {
	t.Helper()
	f := &fixture{
		ingest:    &fakeIngester{},
		store:     memdb.New(),
		discovery: workflow.New[workflow.DiscoveryRequest, struct{}](workflow.DiscoveryWorkflowName, nopRunner[workflow.DiscoveryRequest]{}, 1),
		status:    workflow.New[ingestion.StatusCheckRequest, struct{}](workflow.StatusCheckWorkflowName, nopRunner[ingestion.StatusCheckRequest]{}, 1),
	}
	deps := Deps{
		Ingest:      f.ingest,
		Discovery:   f.discovery,
		StatusCheck: f.status,
		Lookups:     f.store,
	}
	if withAuth {
		f.jwt = NewJWTService(&config.JWTConfig{Secret: "test-secret", Issuer: "job-ingest", ExpirationHours: 1})
		deps.Tokens = f.jwt.AsTokenValidator()
	}
	f.srv = New(Config{Port: 0}, deps)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIngest_Created(t *testing.T) {
	f := newFixture(t, true)
	job := &db.Job{ID: uuid.New()}
	entry := &db.StreamEntry{ID: uuid.New()}
	f.ingest.result = pipeline.Result[*ingestion.Output]{
		RunID:      "run-1",
		DurationMs: 42,
		Output:     &ingestion.Output{Job: job, StreamEntry: entry, Completion: types.CompletionSufficient},
	}
	token, err := f.jwt.GenerateToken("profile-9")
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/ingest", `{"url":" https://acme.com/jobs/1 ","add_to_stream":true,"application_status":"saved"}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[IngestResponse](t, w)
	assert.Equal(t, job.ID, resp.JobID)
	assert.Equal(t, &entry.ID, resp.StreamEntryID)
	assert.Nil(t, resp.ApplicationID)
	assert.Equal(t, types.CompletionSufficient, resp.CompletionState)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, int64(42), resp.DurationMs)

	assert.Equal(t, "profile-9", f.ingest.profile)
	assert.Equal(t, "https://acme.com/jobs/1", f.ingest.req.URL)
	assert.True(t, f.ingest.req.AddToStream)
	assert.Equal(t, "saved", f.ingest.req.ApplicationStatus)
}

func TestIngest_AlreadyExisted(t *testing.T) {
	f := newFixture(t, false)
	f.ingest.result = pipeline.Result[*ingestion.Output]{Output: &ingestion.Output{Job: &db.Job{ID: uuid.New()}, AlreadyExisted: true}}

	w := f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[IngestResponse](t, w).AlreadyExisted)
	assert.Equal(t, "", f.ingest.profile)
}

func TestIngest_RequiresToken(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := NewJWTService(&config.JWTConfig{Secret: "other", Issuer: "job-ingest", ExpirationHours: 1})
	token, err := other.GenerateToken("p")
	require.NoError(t, err)
	w = f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngest_BadRequests(t *testing.T) {
	f := newFixture(t, false)
	for name, body := range map[string]string{
		"malformed":      `{"url":`,
		"unknown field":  `{"url":"https://acme.com/j","priority":1}`,
		"missing url":    `{}`,
		"not a url":      `{"url":"acme"}`,
		"bad status":     `{"url":"https://acme.com/j","application_status":"ghosted"}`,
		"bad company id": `{"url":"https://acme.com/j","company_id":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/ingest", body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestIngest_StepErrors(t *testing.T) {
	tests := []struct {
		err    *pipeline.StepError
		status int
	}{
		{pipeline.Validation("check_existing", "invalid ingestion request", nil), http.StatusBadRequest},
		{pipeline.NotFound("fetch", "page unavailable (status 404)", errors.New("gone")), http.StatusNotFound},
		{pipeline.Network("extract", "extraction service unreachable", errors.New("timeout")), http.StatusBadGateway},
		{pipeline.Extraction("fetch", "page has no readable content", nil), http.StatusUnprocessableEntity},
		{pipeline.Transformation("extract", "extraction failed", nil), http.StatusUnprocessableEntity},
		{pipeline.Load("load_job", "failed to store job", errors.New("conn reset")), http.StatusInternalServerError},
		{pipeline.Unexpected("transform", "step panicked", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			f := newFixture(t, false)
			f.ingest.result = pipeline.Result[*ingestion.Output]{RunID: "r", Err: tt.err}

			w := f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, "")
			assert.Equal(t, tt.status, w.Code)

			body := decode[ErrorBody](t, w)
			assert.Equal(t, tt.err.Kind, body.Kind)
			assert.Equal(t, tt.err.StepName, body.Step)
			assert.Contains(t, body.Error, tt.err.Message)
			assert.Equal(t, "r", body.RunID)
			if tt.err.Cause != nil {
				assert.Equal(t, tt.err.Cause.Error(), body.Cause)
			} else {
				assert.Empty(t, body.Cause)
			}
		})
	}
}

func TestWorkflows_Accepted(t *testing.T) {
	f := newFixture(t, true)
	token, err := f.jwt.GenerateToken("ops")
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/workflows/discovery", `{"source":"acme"}`, token)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	ack := decode[workflow.Accepted](t, w)
	assert.Equal(t, workflow.DiscoveryWorkflowName, ack.Workflow)
	assert.NotEmpty(t, ack.RunID)
	assert.Equal(t, 1, f.discovery.Pending())

	w = f.do(t, http.MethodPost, "/workflows/discovery", "", token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	w = f.do(t, http.MethodPost, "/workflows/status-check", "", token)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(t, http.MethodPost, "/workflows/status-check", `{"limit":0}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWorkflows_Validation(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/workflows/status-check", `{"limit":100000}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/workflows/discovery", `{"sources":["a"]}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflows_Stopped(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.status.Stop(context.Background()))
	w := f.do(t, http.MethodPost, "/workflows/status-check", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLookups(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	acme, err := f.store.CreateCompany(ctx, &db.CompanyCreateInput{Name: "Acme", Domain: "acme.com"})
	require.NoError(t, err)
	job, err := f.store.CreateJob(ctx, &db.JobCreateInput{
		SourceURL: "https://acme.com/jobs/1",
		Source:    "web",
		CompanyID: &acme.ID,
		Data:      types.ExtractedJobData{Title: "Engineer"},
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/jobs/by-url?url=HTTPS://ACME.com/jobs/1/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, job.ID, decode[db.Job](t, w).ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/jobs/by-url?url=https://acme.com/jobs/2", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/jobs/by-url", "", "").Code)

	w = f.do(t, http.MethodGet, "/companies/"+acme.ID.String(), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme", decode[db.Company](t, w).Name)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/companies/"+uuid.NewString(), "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/companies/not-a-uuid", "", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(t, http.MethodOptions, "/ingest", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, false)
	f.ingest.result = pipeline.Result[*ingestion.Output]{Output: &ingestion.Output{Job: &db.Job{ID: uuid.New()}}}
	f.srv = New(Config{}, Deps{
		Ingest:  f.ingest,
		Lookups: f.store,
		Limiter: ratelimit.NewLimiter(&ratelimit.Config{
			Enabled: true,
			Rules:   []ratelimit.Rule{{Method: http.MethodPost, Path: "/ingest", Limit: 1, Window: time.Hour}},
		}),
	})

	w := f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = f.do(t, http.MethodPost, "/ingest", `{"url":"https://acme.com/jobs/1"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", "").Code)
}

func TestJWTService(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "s3cret", Issuer: "job-ingest", ExpirationHours: 1}
	svc := NewJWTService(cfg)

	token, err := svc.GenerateToken("profile-1")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.GetProfileID())
	assert.Equal(t, "profile-1", claims.Subject)

	_, err = svc.GenerateToken("")
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.ErrorContains(t, err, "empty")

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	wrongIssuer := NewJWTService(&config.JWTConfig{Secret: "s3cret", Issuer: "elsewhere", ExpirationHours: 1})
	foreign, err := wrongIssuer.GenerateToken("profile-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorContains(t, err, "token expired")
}
