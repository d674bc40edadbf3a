package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"creatorpack/internal/services"
)

// Fixed error messages returned to clients.
const (
	JobNotFoundMessage      = "Job not found"
	ArtifactNotFoundMessage = "Artifact not found"
	internalErrorMessage    = "Internal server error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	HTTPStatusCode int    `json:"-"`
	Message        string `json:"error"`
}

func (e *ErrorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errBadRequest(message string) render.Renderer {
	return &ErrorResponse{HTTPStatusCode: http.StatusBadRequest, Message: message}
}

func errNotFound(message string) render.Renderer {
	return &ErrorResponse{HTTPStatusCode: http.StatusNotFound, Message: message}
}

func errInternal() render.Renderer {
	return &ErrorResponse{HTTPStatusCode: http.StatusInternalServerError, Message: internalErrorMessage}
}

// errFromService maps a classified service error onto a response. notFound
// names the resource for 404s.
func errFromService(err error, notFound string) render.Renderer {
	switch {
	case errors.Is(err, services.ErrValidation):
		return errBadRequest(services.UserMessage(err))
	case errors.Is(err, services.ErrNotFound):
		return errNotFound(notFound)
	default:
		return errInternal()
	}
}
