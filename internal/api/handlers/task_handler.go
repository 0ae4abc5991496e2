package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard-be/internal/auth"
	"github.com/taskboard/taskboard-be/internal/models"
	"github.com/taskboard/taskboard-be/internal/services"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000

	defaultListLimit = 100
)

// TaskHandler handles HTTP requests for task management.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// TaskPayload defines the structure for create and update requests. On
// update every field is optional; on create the title is required.
type TaskPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

func (p TaskPayload) validate(requireTitle bool) map[string]string {
	fields := map[string]string{}
	if p.Title != nil {
		if *p.Title == "" {
			fields["title"] = "must not be empty"
		} else if len(*p.Title) > maxTitleLen {
			fields["title"] = "must be at most 200 characters"
		}
	} else if requireTitle {
		fields["title"] = "is required"
	}
	if p.Description != nil && len(*p.Description) > maxDescriptionLen {
		fields["description"] = "must be at most 1000 characters"
	}
	if p.Status != nil && !models.TaskStatus(*p.Status).IsValid() {
		fields["status"] = "must be one of not_started, in_progress, done"
	}
	if p.Priority != nil && !models.TaskPriority(*p.Priority).IsValid() {
		fields["priority"] = "must be one of low, medium, high"
	}
	return fields
}

// List handles GET /tasks with skip/limit pagination.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultListLimit)

	tasks, err := h.service.ListTasks(user.ID, skip, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list tasks")
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var payload TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if fields := payload.validate(true); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	in := services.TaskCreate{
		Title:       *payload.Title,
		Description: payload.Description,
	}
	if payload.Status != nil {
		in.Status = models.TaskStatus(*payload.Status)
	}
	if payload.Priority != nil {
		in.Priority = models.TaskPriority(*payload.Priority)
	}

	task, err := h.service.CreateTask(user.ID, in)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create task")
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	taskID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	task, err := h.service.GetTask(user.ID, taskID)
	if err != nil {
		h.respondTaskError(w, err, user.ID, taskID, "get")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT /tasks/{id} with partial semantics.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	taskID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var payload TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if fields := payload.validate(false); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	in := services.TaskUpdate{
		Title:       payload.Title,
		Description: payload.Description,
	}
	if payload.Status != nil {
		status := models.TaskStatus(*payload.Status)
		in.Status = &status
	}
	if payload.Priority != nil {
		priority := models.TaskPriority(*payload.Priority)
		in.Priority = &priority
	}

	task, err := h.service.UpdateTask(user.ID, taskID, in)
	if err != nil {
		h.respondTaskError(w, err, user.ID, taskID, "update")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	taskID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.service.DeleteTask(user.ID, taskID); err != nil {
		h.respondTaskError(w, err, user.ID, taskID, "delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func (h *TaskHandler) respondTaskError(w http.ResponseWriter, err error, userID, taskID int64, op string) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	log.Error().Err(err).Int64("user_id", userID).Int64("task_id", taskID).Str("op", op).Msg("Task operation failed")
	writeError(w, http.StatusInternalServerError, "task operation failed")
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
