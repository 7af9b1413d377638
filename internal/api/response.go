package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
)

// APIResponse is the envelope for resource endpoints.
type APIResponse struct {
	Success    bool           `json:"success"`
	Data       any            `json:"data,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Error      string         `json:"error,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// HandleError logs err and answers with the status errors.HTTPStatus picks.
func HandleError(c *gin.Context, err error, msg string) {
	status := errors.HTTPStatus(err)
	log := logging.LoggerFromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, logging.KeyError, err, logging.KeyStatus, status)
	} else {
		log.Info(msg, logging.KeyError, err, logging.KeyStatus, status)
	}

	var suggestion string
	if ue, ok := errors.AsUserError(err); ok {
		suggestion = ue.Suggestion
	}
	abort(c, status, err.Error(), suggestion)
}

// HandleSuccess answers 200 with data in the envelope.
func HandleSuccess(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// HandleCreated answers 201 with data in the envelope.
func HandleCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func abort(c *gin.Context, status int, msg, suggestion string) {
	c.AbortWithStatusJSON(status, APIResponse{Error: msg, Suggestion: suggestion})
}
