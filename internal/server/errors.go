package server

import (
	"net/http"

	"github.com/jonathan/job-ingest/internal/pipeline"
)

// ErrorBody is the JSON body returned for a failed pipeline run.
type ErrorBody struct {
	Error string             `json:"error"`
	Kind  pipeline.ErrorKind `json:"kind"`
	Step  string             `json:"step"`
	Cause string             `json:"cause,omitempty"`
	RunID string             `json:"run_id,omitempty"`
}

// HTTPStatus maps a step error kind to a response status.
func HTTPStatus(kind pipeline.ErrorKind) int {
	switch kind {
	case pipeline.KindValidation:
		return http.StatusBadRequest
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindNetwork:
		return http.StatusBadGateway
	case pipeline.KindExtraction, pipeline.KindTransformation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var kindMessages = map[pipeline.ErrorKind]string{
	pipeline.KindValidation:     "invalid request",
	pipeline.KindNotFound:       "resource not found",
	pipeline.KindNetwork:        "upstream service unavailable",
	pipeline.KindExtraction:     "could not read job page",
	pipeline.KindTransformation: "could not extract job data",
	pipeline.KindLoad:           "failed to store job",
	pipeline.KindUnexpected:     "internal error",
}

// newErrorBody folds the error kind into a generic message and keeps the
// step's own message and cause for diagnosis.
func newErrorBody(err *pipeline.StepError, runID string) ErrorBody {
	msg, ok := kindMessages[err.Kind]
	if !ok {
		msg = "internal error"
	}
	if err.Message != "" {
		msg += ": " + err.Message
	}
	body := ErrorBody{Error: msg, Kind: err.Kind, Step: err.StepName, RunID: runID}
	if err.Cause != nil {
		body.Cause = err.Cause.Error()
	}
	return body
}
