package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/recallhq/recall/internal/query"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PageResponse represents a page of messages plus pagination metadata.
type PageResponse struct {
	Messages []query.Message `json:"messages"`
	Total    int64           `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeQueryError maps the query error taxonomy to HTTP status codes.
// NotFound, InvalidFilter, and Validation errors are caller errors; anything
// else is a 500 and is logged with detail withheld from the response.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var invalid *query.InvalidFilterError
	var validation *query.ValidationError

	switch {
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Message not found")
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "invalid_filter", invalid.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_error", validation.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Request failed")
	}
}

// filterFromRequest parses the recognized filter query parameters.
func filterFromRequest(r *http.Request) (query.FilterSpec, error) {
	q := r.URL.Query()

	filter := query.FilterSpec{
		Author:  q.Get("author"),
		Server:  q.Get("server"),
		Channel: q.Get("channel"),
		Tag:     q.Get("tag"),
	}

	var err error
	if filter.HoursAgo, err = intParam(q.Get("hours_ago"), "hours_ago"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.MinutesAgo, err = intParam(q.Get("minutes_ago"), "minutes_ago"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Since, err = timeParam(q.Get("since"), "since"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Until, err = timeParam(q.Get("until"), "until"); err != nil {
		return query.FilterSpec{}, err
	}

	return filter, nil
}

// intParam parses an optional integer query parameter.
func intParam(v, name string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &query.InvalidFilterError{Reason: fmt.Sprintf("%s must be an integer, got %q", name, v)}
	}
	return &n, nil
}

// timeParam parses an optional ISO 8601 datetime query parameter. Values
// without a zone offset are interpreted as UTC.
func timeParam(v, name string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, &query.InvalidFilterError{Reason: fmt.Sprintf("invalid %s datetime %q: expected ISO 8601", name, v)}
}

// handleListMessages returns a filtered, paginated page of messages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	page, err := s.service.ListHistory(r.Context(), filter)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse(page))
}

// handleSearch searches message content and summaries.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	page, err := s.service.Search(r.Context(), r.URL.Query().Get("text"), filter)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse(page))
}

// createMessageRequest is the POST /messages body. Content is a pointer so
// an absent field is distinguishable from an empty string.
type createMessageRequest struct {
	Author  string   `json:"author"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
	Summary *string  `json:"summary"`
	Server  *string  `json:"server"`
	Channel *string  `json:"channel"`
}

// handleCreateMessage inserts a new message and returns the stored record.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON message object")
		return
	}

	msg, err := s.store.Insert(r.Context(), query.NewMessage{
		Author:  req.Author,
		Content: req.Content,
		Tags:    req.Tags,
		Summary: req.Summary,
		Server:  req.Server,
		Channel: req.Channel,
	})
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// handleGetMessage returns a single message by ID.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	msg, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// handleDeleteMessage removes a message by ID. Deleting an id that does not
// exist is not an error; the response reports whether a row was removed.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// handleStats returns archive statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Message ID must be a number")
		return 0, false
	}
	return id, true
}

func pageResponse(page *query.Page) PageResponse {
	return PageResponse{
		Messages: page.Items,
		Total:    page.TotalMatching,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
}
