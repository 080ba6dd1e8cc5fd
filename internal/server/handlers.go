package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/comps"
	"comps-workers/internal/comps/archive"
	"comps-workers/internal/comps/history"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error *apperrors.StandardError `json:"error"`
}

// searchErrorResponse carries the "error" result next to the failure.
type searchErrorResponse struct {
	*comps.SearchResult
	Error *apperrors.StandardError `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, apperrors.NewInvalidRequestBodyError(err))
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.writeError(w, apperrors.NewInvalidRequestBodyError(err))
		return
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.Validate(searchTaskType, raw); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var req comps.SearchRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, apperrors.NewInvalidRequestBodyError(err))
		return
	}

	result, err := s.deps.Search.Search(r.Context(), req)
	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		if stdErr.Code == apperrors.ErrCodeValidationFailed {
			s.writeError(w, stdErr)
			return
		}
		s.logger.Error("search failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Error(),
		})
		writeJSON(w, apperrors.HTTPStatus(stdErr.Code), searchErrorResponse{
			SearchResult: comps.ErrorResult(req),
			Error:        stdErr,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "search history is disabled"})
		return
	}

	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, apperrors.NewValidationError("limit must be an integer"))
		return
	}

	entries, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"searches": entries})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "listing archive is disabled"})
		return
	}

	size, err := intParam(r, "size")
	if err != nil {
		s.writeError(w, apperrors.NewValidationError("size must be an integer"))
		return
	}

	docs, err := s.deps.Archive.Search(r.Context(), r.URL.Query().Get("q"), size)
	if err != nil {
		if errors.Is(err, archive.ErrEmptyQuery) {
			s.writeError(w, apperrors.NewValidationError("q must not be empty"))
			return
		}
		s.writeError(w, apperrors.NewInternalError(err))
		return
	}
	if docs == nil {
		docs = []archive.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": docs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checkers))
	for _, c := range s.deps.Checkers {
		if err := c.Ping(ctx); err != nil {
			checks[c.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name()] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Error(),
		})
	}
	writeJSON(w, status, errorResponse{Error: stdErr})
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
