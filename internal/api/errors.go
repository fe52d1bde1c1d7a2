// Package api provides the HTTP handlers for tasks, playbook operations,
// schemas, feedback, telemetry stats, and the admin cache surface.
package api

import (
	"errors"
	"net/http"

	"github.com/davidahmann/reliaansible/internal/cache"
	"github.com/davidahmann/reliaansible/internal/generation"
	"github.com/davidahmann/reliaansible/internal/service"
	"github.com/davidahmann/reliaansible/internal/service/auth"
	"github.com/davidahmann/reliaansible/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, service.ErrSchemaNotFound),
		errors.Is(err, service.ErrPlaybookNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrInvalidState):
		return http.StatusConflict

	case errors.Is(err, task.ErrInvalidProgress),
		errors.Is(err, service.ErrInvalidPlaybookID),
		errors.Is(err, cache.ErrInvalidTTL):
		return http.StatusBadRequest

	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for an error.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrInvalidState):
		return "Task is not in a state that allows this operation"

	case errors.Is(err, task.ErrInvalidProgress):
		return "Progress must be between 0 and 100"

	case errors.Is(err, service.ErrSchemaNotFound):
		return "Module schema not found"

	case errors.Is(err, service.ErrPlaybookNotFound):
		return "Playbook not found"

	case errors.Is(err, service.ErrInvalidPlaybookID):
		return "Invalid playbook ID"

	case errors.Is(err, generation.ErrContentBlocked):
		return "Generated content was blocked by safety filters"

	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrGenerationFailed):
		return "Playbook generation failed"

	default:
		return "An unexpected error occurred"
	}
}
