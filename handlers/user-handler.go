package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/services"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

// Register handles POST /users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := h.Service.Register(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// Login handles POST /users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFail(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	token, user, err := h.Service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	user, err := h.Service.GetByID(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"user": user})
}
