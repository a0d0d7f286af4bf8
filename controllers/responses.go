package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/customs"
	"github.com/kendall-kelly/customs-tracker-api/services"
	"github.com/kendall-kelly/customs-tracker-api/utils"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string, details ...string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 && details[0] != "" {
		body["details"] = details[0]
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondServiceError maps an error from the custom service to a response.
// fallbackCode is used for unexpected failures.
func respondServiceError(c *gin.Context, err error, fallbackCode, fallbackMessage string) {
	var vErr *customs.ValidationError
	var tErr *customs.InvalidTransitionError
	var uploadErr *utils.FileUploadError

	switch {
	case errors.Is(err, services.ErrCustomNotFound):
		respondError(c, http.StatusNotFound, "CUSTOM_NOT_FOUND", "Custom not found")
	case errors.As(err, &tErr):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", tErr.Error())
	case errors.As(err, &vErr):
		status := http.StatusBadRequest
		if vErr.Code == customs.CodeDescriptionLocked {
			status = http.StatusConflict
		}
		respondError(c, status, vErr.Code, vErr.Message)
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	default:
		_ = c.Error(err)
		zap.L().Error(fallbackMessage,
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
		)
		respondError(c, http.StatusInternalServerError, fallbackCode, fallbackMessage)
	}
}

func bindingError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, customs.CodeValidation, "Invalid request data", err.Error())
}

// customService returns the configured service or answers 503
func customService(c *gin.Context) (*services.CustomService, bool) {
	service := services.GetCustomService()
	if service == nil {
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Custom service is not configured")
		return nil, false
	}
	return service, true
}
