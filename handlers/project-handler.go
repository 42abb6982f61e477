package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/models"
	"github.com/nithinknkr/TeamSync/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectHandler struct {
	Service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

// ListProjects handles GET /projects.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	projects, err := h.Service.ListProjectsForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// CreateProject handles POST /projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	project, err := h.Service.CreateProject(r.Context(), userID, body.Name, body.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"project": project})
}

// GetProject handles GET /projects/{id}.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	detail, err := h.Service.GetProject(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"project": detail})
}

// GetPublicProjectInfo handles GET /projects/{id}/public. Auth is optional:
// a known caller additionally learns whether they are already a member.
func (h *ProjectHandler) GetPublicProjectInfo(w http.ResponseWriter, r *http.Request) {
	var callerID *primitive.ObjectID
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		callerID = &userID
	}

	info, err := h.Service.GetPublicProjectInfo(r.Context(), mux.Vars(r)["id"], callerID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"project": info})
}

// JoinProject handles POST /projects/{id}/join.
func (h *ProjectHandler) JoinProject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	result, err := h.Service.JoinProject(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// ListMembers handles GET /projects/{id}/members.
func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	members, err := h.Service.ListMembers(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"members": members})
}

// InviteMembers handles POST /projects/{id}/invite. Per-email failures do
// not fail the request; the response partitions the outcome.
func (h *ProjectHandler) InviteMembers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var body struct {
		Emails  []string `json:"emails"`
		Message string   `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.Service.InviteMembers(r.Context(), userID, mux.Vars(r)["id"], body.Emails, body.Message)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// ListProjectTasks handles GET /projects/{id}/tasks.
func (h *ProjectHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	tasks, err := h.Service.ListProjectTasks(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// AddProjectTask handles POST /projects/{id}/tasks.
func (h *ProjectHandler) AddProjectTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	created, err := h.Service.AddProjectTask(r.Context(), userID, mux.Vars(r)["id"], &task)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"task": created})
}
