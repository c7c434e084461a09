package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notify-service/internal/models"
	"notify-service/internal/services"
)

// SuccessResponse sends a success response
func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, status int, message string, err error) {
	apiError := &models.APIError{
		Code:    "ERROR",
		Message: message,
	}
	if err != nil {
		apiError.Details = err.Error()
	}

	c.JSON(status, models.APIResponse{
		Success: false,
		Message: message,
		Error:   apiError,
	})
}

// errorCodedResponse sends an error response carrying a machine-readable code
func errorCodedResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// handleServiceError maps known service error types onto HTTP statuses.
// Anything unrecognized is a 500 with the fallback message.
func handleServiceError(c *gin.Context, err error, fallback string) {
	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		errorCodedResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", rateErr.Error())
		return
	}

	var verErr *services.VerificationError
	if errors.As(err, &verErr) {
		status := http.StatusUnprocessableEntity
		if verErr.Reason == services.ReasonNotFound {
			status = http.StatusNotFound
		}
		errorCodedResponse(c, status, verErr.Reason, verErr.Message)
		return
	}

	var decErr *services.RSADecryptionError
	if errors.As(err, &decErr) {
		// The coarse message only; the cause stays in server logs.
		errorCodedResponse(c, http.StatusBadRequest, "DECRYPTION_FAILED", decErr.Error())
		return
	}

	ErrorResponse(c, http.StatusInternalServerError, fallback, err)
}
