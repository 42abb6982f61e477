package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/services"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	Service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{Service: service}
}

// GetTeamMessages handles GET /projects/{projectId}/chat/team.
func (h *ChatHandler) GetTeamMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	messages, err := h.Service.GetTeamMessages(r.Context(), userID, mux.Vars(r)["projectId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// SendTeamMessage handles POST /projects/{projectId}/chat/team.
func (h *ChatHandler) SendTeamMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	message, err := h.Service.SendTeamMessage(r.Context(), userID, mux.Vars(r)["projectId"], body.Content)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"message": message})
}

// GetPersonalMessages handles GET /projects/{projectId}/chat/personal.
func (h *ChatHandler) GetPersonalMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	result, err := h.Service.GetPersonalMessages(r.Context(), userID, mux.Vars(r)["projectId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// SendPersonalMessage handles POST /projects/{projectId}/chat/personal.
func (h *ChatHandler) SendPersonalMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	message, err := h.Service.SendPersonalMessage(r.Context(), userID, mux.Vars(r)["projectId"], body.Content)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"message": message})
}

// GetPersonalConversations handles
// GET /projects/{projectId}/chat/personal/conversations. Lead-only.
func (h *ChatHandler) GetPersonalConversations(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	conversations, err := h.Service.GetPersonalConversations(r.Context(), userID, mux.Vars(r)["projectId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"conversations": conversations})
}
