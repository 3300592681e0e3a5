package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"weaver/internal/deps"
	llmclient "weaver/internal/llmClient"
	"weaver/internal/schema"
	"weaver/internal/util/jsonutil"
	"weaver/internal/validate"
)

const maxBodyBytes = 4 << 20

type errorBody struct {
	Error     string                `json:"error"`
	RequestID string                `json:"request_id,omitempty"`
	Fields    []validate.FieldError `json:"fields,omitempty"`
	Raw       string                `json:"raw,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

// writeError maps an error chain to a status code: invalid input 400,
// unusable backend output 422, backend failure 502.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), RequestID: middleware.GetReqID(r.Context())}
	status := http.StatusInternalServerError

	var ve *validate.ValidationError
	var be *llmclient.BackendError
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		body.Fields = ve.Errors
		body.Raw = ve.Raw
	case errors.As(err, &be):
		status = http.StatusBadGateway
		body.Reason = string(be.Reason)
	case errors.Is(err, schema.ErrSchema), errors.Is(err, deps.ErrDependency), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status >= 500 {
		h.log.Error("server: request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.log.Warn("server: request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
