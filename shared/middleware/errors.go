package middleware

import (
	"net/http"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type BadRequestErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details []ValidationError `json:"details"`
}

func RespondWithValidationError(c *gin.Context, validationErrors []ValidationError) {
	c.JSON(http.StatusBadRequest, BadRequestErrorResponse{
		Error:   string(apperr.KindValidation),
		Message: "Invalid request data",
		Details: validationErrors,
	})
}

// RespondWithError writes an error body with the kind implied by code.
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: string(kindForStatus(code)), Message: message})
}

// RespondWithAppError maps err onto its status and body. Internal errors are
// logged and reported without detail.
func RespondWithAppError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		LoggerFrom(c).Error("request failed", zap.Error(err))
	}
	c.JSON(apperr.HTTPStatus(kind), ErrorResponse{
		Error:   string(kind),
		Message: apperr.MessageOf(err),
	})
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusTooManyRequests:
		return apperr.KindRateLimited
	default:
		return apperr.KindInternal
	}
}
