package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tantalumq/taco/internal/api/middleware"
	"github.com/tantalumq/taco/internal/api/response"
	"github.com/tantalumq/taco/internal/domain"
	"github.com/tantalumq/taco/internal/service"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Status returns a user's public profile and whether they are online
func (h *UserHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		response.BadRequest(w, "missing user ID")
		return
	}

	status, err := h.userService.Status(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, status)
}

// UpdateProfile applies the caller's profile changes
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.userService.UpdateProfile(r.Context(), userID, input); err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, nil)
}
