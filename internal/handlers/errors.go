package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/models"
)

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation, apperrors.CodeInvalidStatus:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeCommentNotAllowed, apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Server-side failures keep their cause
// on the gin context for the request log and hide it from the caller.
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		code = apperrors.CodeStorage
		message = "internal storage failure"
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: string(code), Message: message})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, apperrors.Validation(message))
}

// uuidParam treats a malformed id like an unknown one.
func uuidParam(c *gin.Context, name, notFoundMessage string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.NotFound(notFoundMessage))
		return uuid.Nil, false
	}
	return id, true
}
