package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tantalumq/taco/internal/api/middleware"
	"github.com/tantalumq/taco/internal/api/response"
	"github.com/tantalumq/taco/internal/domain"
	"github.com/tantalumq/taco/internal/service"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an account and returns its first session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.LoginInfo
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	session, err := h.authService.Register(r.Context(), input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, session)
}

// LogIn verifies credentials and returns a new session
func (h *AuthHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var input domain.LoginInfo
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	session, err := h.authService.Login(r.Context(), input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, session)
}

// LogOut destroys the caller's session. Logging out twice is fine.
func (h *AuthHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetSessionToken(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		serviceError(w, err)
		return
	}

	response.NoContent(w)
}
