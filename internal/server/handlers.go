// ABOUTME: HTTP handlers for the review API
// ABOUTME: JSON request decoding, response encoding and error to status mapping
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/internal/version"
	"github.com/mixroom/mixcheck/pkg/analysis"
)

type errorResponse struct {
	Error string `json:"error"`
}

type replaceURLRequest struct {
	URL string `json:"url"`
}

type submitReviewRequest struct {
	Status   review.Status `json:"status"`
	Feedback string        `json:"feedback"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"server_id": s.serverID,
		"name":      s.config.Name,
		"version":   version.Version,
		"watchers":  len(s.hub.Watchers()),
	})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Policy())
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.Files(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleRegisterFile(w http.ResponseWriter, r *http.Request) {
	var spec review.FileSpec
	if !s.decodeBody(w, r, &spec) {
		return
	}

	file, err := s.service.Register(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.service.File(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleReplaceURL(w http.ResponseWriter, r *http.Request) {
	var req replaceURLRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	file, err := s.service.ReplaceURL(r.Context(), r.PathValue("id"), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, file)
}

// handleAnalyze runs analysis within the request. A client that disconnects
// cancels the decode.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	ctx := r.Context()
	if s.config.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AnalyzeTimeout)
		defer cancel()
	}

	result, err := s.service.Analyze(ctx, r.PathValue("id"), force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.service.Reviews(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req submitReviewRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rev, err := s.service.Submit(r.Context(), r.PathValue("id"), req.Status, req.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rev)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// statusFor maps workflow and analysis errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrFeedbackRequired),
		errors.Is(err, review.ErrInvalidStatus),
		errors.Is(err, review.ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, review.ErrFileReplaced):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrCancelled):
		return http.StatusRequestTimeout
	case analysis.IsDecodeError(err), errors.Is(err, analysis.ErrChannelOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusRequestTimeout:
		s.logger.Debugw("request cancelled", "path", r.URL.Path, "error", err)
	case status >= http.StatusInternalServerError:
		s.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	default:
		s.logger.Debugw("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugw("failed to write response", "error", err)
	}
}
