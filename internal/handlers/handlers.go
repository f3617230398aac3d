package handlers

import (
	"errors"
	"net/http"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/logger"
	"ticketapi/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		services: services,
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	StatusCode int                    `json:"statusCode"`
	Name       string                 `json:"name"`
	Message    string                 `json:"message"`
	Details    []apperrors.FieldError `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, name, message string, details []apperrors.FieldError) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		StatusCode: status,
		Name:       name,
		Message:    message,
		Details:    details,
	}})
}

// handleBindError answers a request whose body could not be decoded. Type
// mismatches on declared fields are validation failures; anything else is a
// malformed body.
func (h *Handlers) handleBindError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		abortWithError(c, http.StatusUnprocessableEntity, "UnprocessableEntityError", verr.Error(), verr.Details)
		return
	}
	abortWithError(c, http.StatusBadRequest, "BadRequestError", "Invalid JSON body: "+err.Error(), nil)
}

// handleServiceError maps service errors to HTTP statuses.
func (h *Handlers) handleServiceError(c *gin.Context, err error, message string) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		abortWithError(c, http.StatusUnprocessableEntity, "UnprocessableEntityError", verr.Error(), verr.Details)
	case errors.Is(err, apperrors.ErrValidation):
		abortWithError(c, http.StatusUnprocessableEntity, "UnprocessableEntityError", err.Error(), nil)
	case errors.Is(err, apperrors.ErrInvalidFilter):
		abortWithError(c, http.StatusBadRequest, "BadRequestError", err.Error(), nil)
	case errors.Is(err, apperrors.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "NotFoundError", err.Error(), nil)
	default:
		logger.WithContext(c.Request.Context()).Error(message, "error", err)
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "InternalServerError", message, nil)
	}
}
