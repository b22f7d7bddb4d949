package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/types"
	"github.com/jonathan/job-ingest/internal/urlnorm"
	"github.com/jonathan/job-ingest/internal/workflow"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// IngestRequest is the POST /ingest body.
type IngestRequest struct {
	URL               string     `json:"url" validate:"required,url"`
	CompanyID         *uuid.UUID `json:"company_id,omitempty"`
	CompanyName       *string    `json:"company_name,omitempty" validate:"omitempty,max=200"`
	AddToStream       bool       `json:"add_to_stream"`
	ApplicationStatus string     `json:"application_status,omitempty" validate:"omitempty,oneof=saved applied interviewing offer rejected"`
}

// IngestResponse is the POST /ingest success body.
type IngestResponse struct {
	JobID           uuid.UUID             `json:"job_id"`
	StreamEntryID   *uuid.UUID            `json:"stream_entry_id,omitempty"`
	ApplicationID   *uuid.UUID            `json:"application_id,omitempty"`
	CompletionState types.CompletionState `json:"completion_state"`
	AlreadyExisted  bool                  `json:"already_existed"`
	RunID           string                `json:"run_id"`
	DurationMs      int64                 `json:"duration_ms"`
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves
// dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest runs an ingestion and waits for the result. A job that
// already existed is answered with 200 instead of 201.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body IngestRequest
	if err := decodeBody(r, &body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if err := s.validate.Struct(body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	res := s.deps.Ingest.Run(r.Context(), ingestion.Request{
		URL:               body.URL,
		CompanyID:         body.CompanyID,
		CompanyName:       body.CompanyName,
		AddToStream:       body.AddToStream,
		ApplicationStatus: body.ApplicationStatus,
	}, s.profileID(r))
	if res.Err != nil {
		s.jsonResponse(w, HTTPStatus(res.Err.Kind), newErrorBody(res.Err, res.RunID))
		return
	}

	out := res.Output
	resp := IngestResponse{
		JobID:           out.Job.ID,
		CompletionState: out.Completion,
		AlreadyExisted:  out.AlreadyExisted,
		RunID:           res.RunID,
		DurationMs:      res.DurationMs,
	}
	if out.StreamEntry != nil {
		resp.StreamEntryID = &out.StreamEntry.ID
	}
	if out.Application != nil {
		resp.ApplicationID = &out.Application.ID
	}
	status := http.StatusCreated
	if out.AlreadyExisted {
		status = http.StatusOK
	}
	s.jsonResponse(w, status, resp)
}

// handleDiscovery queues a discovery run.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var req workflow.DiscoveryRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	ack, err := s.deps.Discovery.Submit(req, s.profileID(r))
	s.accepted(w, ack, err)
}

// handleStatusCheck queues a status check run.
func (s *Server) handleStatusCheck(w http.ResponseWriter, r *http.Request) {
	var req ingestion.StatusCheckRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	ack, err := s.deps.StatusCheck.Submit(req, s.profileID(r))
	s.accepted(w, ack, err)
}

func (s *Server) accepted(w http.ResponseWriter, ack workflow.Accepted, err error) {
	switch {
	case errors.Is(err, workflow.ErrQueueFull), errors.Is(err, workflow.ErrStopped):
		w.Header().Set("Retry-After", "30")
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		slog.Error("failed to submit workflow", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to submit workflow")
	default:
		s.jsonResponse(w, http.StatusAccepted, ack)
	}
}

// handleJobByURL looks a job up by its source URL.
func (s *Server) handleJobByURL(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		s.errorResponse(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	job, err := s.deps.Lookups.GetJobBySourceURL(r.Context(), urlnorm.Normalize(raw))
	if err != nil {
		slog.Error("job lookup failed", "url", raw, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to look up job")
		return
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleGetCompany returns a company by id.
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	company, err := s.deps.Lookups.GetCompanyByID(r.Context(), id)
	if err != nil {
		slog.Error("company lookup failed", "company_id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to look up company")
		return
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "company not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, company)
}
