// ABOUTME: HTTP API handlers for authentication and owner-scoped task CRUD
// ABOUTME: Explicit request and response schemas per endpoint, JSON errors via sendJSONError

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aa-tracker/aa-tracker/internal/auth"
	"github.com/aa-tracker/aa-tracker/internal/metrics"
	"github.com/aa-tracker/aa-tracker/internal/store"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// AuthRequest is the JSON request body for POST /auth.
type AuthRequest struct {
	InitData string `json:"initData"`
}

// AuthResponse is the JSON response for POST /auth.
type AuthResponse struct {
	Status     string  `json:"status"`
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
}

// CreateTaskRequest is the JSON request body for POST /tasks.
type CreateTaskRequest struct {
	TelegramID *int64 `json:"telegram_id"`
	Text       string `json:"text"`
	Date       string `json:"date"`
}

// UpdateTaskRequest is the JSON request body for PUT /tasks/{id}.
type UpdateTaskRequest struct {
	TelegramID *int64 `json:"telegram_id"`
	Text       string `json:"text"`
}

// ToggleTaskRequest is the JSON request body for PUT /tasks/{id}/toggle.
type ToggleTaskRequest struct {
	TelegramID *int64 `json:"telegram_id"`
}

// TaskResponse is the JSON representation of a task.
type TaskResponse struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Done      bool   `json:"done"`
	UpdatedAt string `json:"updated_at"`
}

// ListTasksResponse is the JSON response for GET /tasks.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// ToggleTaskResponse is the JSON response for PUT /tasks/{id}/toggle.
type ToggleTaskResponse struct {
	ID   int64 `json:"id"`
	Done bool  `json:"done"`
}

// StatusResponse is a bare {"status": ...} body.
type StatusResponse struct {
	Status string `json:"status"`
}

// errBadRequest marks request-shape problems detected by the HTTP layer itself.
var errBadRequest = errors.New("bad request")

// errOwnerMismatch is returned when the claimed telegram_id differs from the verified caller.
var errOwnerMismatch = errors.New("telegram_id does not match authenticated user")

func toTaskResponse(t *store.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Text:      t.Text,
		Date:      t.Date,
		Done:      t.Done,
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleAuth handles POST /auth.
// It verifies the init data, upserts the user and echoes the identity.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.InitData == "" {
		s.sendJSONError(w, http.StatusBadRequest, "initData is required")
		return
	}

	identity, err := s.auth.Authenticate(r.Context(), req.InitData)
	if err != nil {
		s.sendError(w, err, auth.PublicMessage(err))
		return
	}

	s.sendJSON(w, http.StatusOK, AuthResponse{
		Status:     "ok",
		TelegramID: identity.ID,
		Username:   identity.Username,
		FirstName:  identity.FirstName,
	})
}

// handleListTasks handles GET /tasks?telegram_id=&date=.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	claimed, err := parseOptionalID(q.Get("telegram_id"))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "telegram_id must be a positive integer")
		return
	}
	ownerID, err := s.resolveOwner(r, claimed)
	if err != nil {
		s.sendError(w, err, err.Error())
		return
	}

	date := q.Get("date")
	if date == "" {
		s.sendJSONError(w, http.StatusBadRequest, "date is required")
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), ownerID, date)
	recordTaskOp("list", err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	resp := ListTasksResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleCreateTask handles POST /tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ownerID, err := s.resolveOwner(r, req.TelegramID)
	if err != nil {
		s.sendError(w, err, err.Error())
		return
	}

	task, err := s.store.CreateTask(r.Context(), ownerID, req.Text, req.Date)
	recordTaskOp("create", err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, toTaskResponse(task))
}

// handleUpdateTask handles PUT /tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ownerID, err := s.resolveOwner(r, req.TelegramID)
	if err != nil {
		s.sendError(w, err, err.Error())
		return
	}

	task, err := s.store.UpdateTask(r.Context(), ownerID, taskID, req.Text)
	recordTaskOp("update", err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, toTaskResponse(task))
}

// handleToggleTask handles PUT /tasks/{id}/toggle.
// The body may be empty when the caller is authenticated by header.
func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req ToggleTaskRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ownerID, err := s.resolveOwner(r, req.TelegramID)
	if err != nil {
		s.sendError(w, err, err.Error())
		return
	}

	task, err := s.store.ToggleTask(r.Context(), ownerID, taskID)
	recordTaskOp("toggle", err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, ToggleTaskResponse{ID: task.ID, Done: task.Done})
}

// handleDeleteTask handles DELETE /tasks/{id}?telegram_id=.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskID(w, r)
	if !ok {
		return
	}

	claimed, err := parseOptionalID(r.URL.Query().Get("telegram_id"))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "telegram_id must be a positive integer")
		return
	}
	ownerID, err := s.resolveOwner(r, claimed)
	if err != nil {
		s.sendError(w, err, err.Error())
		return
	}

	err = s.store.DeleteTask(r.Context(), ownerID, taskID)
	recordTaskOp("delete", err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// resolveOwner returns the owner id for a task request.
// With header authentication the verified identity wins and a differing claim is refused;
// otherwise the claimed telegram_id is required.
func (s *Server) resolveOwner(r *http.Request, claimed *int64) (int64, error) {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		if claimed != nil && *claimed != identity.ID {
			return 0, errOwnerMismatch
		}
		return identity.ID, nil
	}

	if s.config.Auth.RequireInitData {
		// the middleware guarantees an identity; reaching here is a wiring bug
		return 0, errors.New("missing authenticated identity")
	}
	if claimed == nil {
		return 0, fmt.Errorf("%w: telegram_id is required", errBadRequest)
	}
	if *claimed <= 0 {
		return 0, fmt.Errorf("%w: telegram_id must be a positive integer", errBadRequest)
	}
	return *claimed, nil
}

// taskID parses the {id} path segment, writing a 400 on failure.
func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.sendJSONError(w, http.StatusBadRequest, "task id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseOptionalID(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, errBadRequest
	}
	return &id, nil
}

// decodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields, trailing data and bodies over maxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	if dec.More() {
		return errors.New("invalid JSON body")
	}
	return nil
}

func recordTaskOp(op string, err error) {
	metrics.TaskOperations.WithLabelValues(op, auth.Outcome(err)).Inc()
}

// sendStoreError maps a store error to a response.
func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, store.ErrInvalidInput):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.sendError(w, err, "")
	}
}

// sendError writes err with the status auth.HTTPStatus assigns, using msg as the body
// for client errors. Server errors are logged and get a generic body.
func (s *Server) sendError(w http.ResponseWriter, err error, msg string) {
	status := auth.HTTPStatus(err)
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errOwnerMismatch):
		status = http.StatusForbidden
	}

	switch status {
	case http.StatusServiceUnavailable:
		s.logger.Warn("storage unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		msg = "storage unavailable"
	case http.StatusInternalServerError:
		s.logger.Error("request failed", "error", err)
		msg = "internal server error"
	}
	s.sendJSONError(w, status, msg)
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("writing response failed", "error", err)
	}
}
