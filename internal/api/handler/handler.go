// Package handler contains the HTTP endpoint implementations. Handlers
// decode and validate the body, resolve the requester from the request
// context, call one service method and translate its error, nothing more.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/tantalumq/taco/internal/api/response"
	"github.com/tantalumq/taco/internal/domain"
)

var validate = validator.New()

// validationMessages flattens validator errors into field:reason pairs
func validationMessages(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make(map[string]string)
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages[e.Field()] = "field is required"
		case "min":
			messages[e.Field()] = "must be at least " + e.Param() + " characters"
		case "max":
			messages[e.Field()] = "must be at most " + e.Param() + " characters"
		default:
			messages[e.Field()] = "validation failed on " + e.Tag()
		}
	}
	return messages
}

// serviceError maps domain errors onto HTTP status codes
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrConflict):
		response.Conflict(w, "conflict")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid credentials")
	case errors.Is(err, domain.ErrInvalidSession):
		response.Unauthorized(w, "invalid or expired session")
	default:
		response.InternalError(w, "internal error")
	}
}
