package types

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/killallgit/scribe-api/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// RequireParam returns a non-blank URL parameter, or sends a bad request
// response and reports false
func RequireParam(c *gin.Context, paramName string) (string, bool) {
	value := strings.TrimSpace(c.Param(paramName))
	if value == "" {
		SendBadRequest(c, "Invalid "+paramName)
		return "", false
	}
	return value, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Error:   string(apperrors.ErrCodeInvalidInput),
			Details: err.Error(),
		})
		return false
	}
	return true
}

// SendError maps a service error to its HTTP status and error code
func SendError(c *gin.Context, err error) {
	appErr := apperrors.FromDomain(err)
	status := appErr.GetHTTPCode()

	response := ErrorResponse{
		Status:  StatusError,
		Message: appErr.Message,
		Error:   string(appErr.Code),
	}
	if len(appErr.Details) > 0 {
		response.Details = appErr.Details
	}
	if status >= http.StatusInternalServerError && appErr.Code == apperrors.ErrCodeInternal {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, response)
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Status: StatusError, Message: message, Error: string(apperrors.ErrCodeInvalidInput)})
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Status: StatusError, Message: message, Error: string(apperrors.ErrCodeNotFound)})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendAccepted sends a 202 for work continuing in the background
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

// OK builds a success BaseResponse
func OK(message string) BaseResponse {
	return BaseResponse{Status: StatusOK, Message: message}
}
