package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/models"
	"github.com/nithinknkr/TeamSync/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	Service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{Service: service}
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	tasks, err := h.Service.ListTasksForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// CreateTask handles POST /tasks. A projectId query parameter switches from
// a personal task to a project task with the lead-only assignment rule.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var (
		created *models.Task
		err     error
	)
	if projectID := r.URL.Query().Get("projectId"); projectID != "" {
		created, err = h.Service.CreateProjectTask(r.Context(), userID, projectID, &task)
	} else {
		created, err = h.Service.CreatePersonalTask(r.Context(), userID, &task)
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"task": created})
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	task, err := h.Service.GetTask(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"task": task})
}

// UpdateTask handles PATCH /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var patch services.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	task, err := h.Service.UpdateTask(r.Context(), userID, mux.Vars(r)["id"], patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"task": task})
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.Service.DeleteTask(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondNoContent(w)
}

// AddSubtask handles POST /tasks/{id}/subtasks.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var subtask models.Subtask
	if err := json.NewDecoder(r.Body).Decode(&subtask); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	task, err := h.Service.AddSubtask(r.Context(), userID, mux.Vars(r)["id"], subtask)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"task": task})
}

// UpdateSubtask handles PATCH /tasks/{taskId}/subtasks/{subtaskId}.
func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	var patch services.SubtaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	task, err := h.Service.UpdateSubtask(r.Context(), userID, vars["taskId"], vars["subtaskId"], patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"task": task})
}

// DeleteSubtask handles DELETE /tasks/{taskId}/subtasks/{subtaskId}.
func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	if _, err := h.Service.DeleteSubtask(r.Context(), userID, vars["taskId"], vars["subtaskId"]); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondNoContent(w)
}
