package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Status: StatusSuccess, Data: data})
}

// RespondWithMessage sends a success response carrying only a message
func RespondWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Status: StatusSuccess, Message: message})
}

// RespondWithStatus sends an error envelope with an explicit status
func RespondWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Status: StatusError, Message: message})
}

// AbortWithStatus is RespondWithStatus for middleware
func AbortWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Status: StatusError, Message: message})
}

// RespondWithError sends an error response. Only AppError messages reach
// the client; anything else is logged and reported as a generic 500.
func RespondWithError(c *gin.Context, err error) {
	if appErr, ok := errors.As(err); ok {
		status := appErr.Code.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logError(c, err)
		}
		RespondWithStatus(c, status, appErr.Message)
		return
	}

	logError(c, err)
	RespondWithStatus(c, http.StatusInternalServerError, "Internal server error")
}

func logError(c *gin.Context, err error) {
	log.Error().
		Err(err).
		Str("request_id", c.GetString("request_id")).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("request failed")
}
