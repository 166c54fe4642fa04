package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/validator"
)

// requestIDKey mirrors middleware.CtxRequestIDKey without importing the middleware package.
const requestIDKey = "requestID"

// Response is the envelope of every admin API payload.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the client-facing part of a failure.
type ErrorInfo struct {
	Code    string                     `json:"code"`
	Message string                     `json:"message"`
	Fields  validator.ValidationErrors `json:"fields,omitempty"`
}

// Meta describes list metadata.
type Meta struct {
	Total int `json:"total"`
}

// Success writes data with statusCode.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// List writes a collection with its size.
func List(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: &Meta{Total: total}})
}

// Error renders err. Validation failures become a 400 with per-field details, an
// AppError keeps its status, and anything else is a 500. The internal cause is
// attached to the gin context and logged for 5xx responses, never sent to the client.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, Response{Error: &ErrorInfo{
			Code:    appErrors.ErrBadRequest.Code,
			Message: fields.Error(),
			Fields:  fields,
		}})
		return
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if appErr.Internal != nil {
		_ = c.Error(appErr.Internal)
		if status >= http.StatusInternalServerError {
			path := ""
			if c.Request != nil {
				path = c.Request.URL.Path
			}
			logger.WithModule("http").Error("request failed",
				zap.String("code", appErr.Code),
				zap.String("path", path),
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.Error(appErr.Internal),
			)
		}
	}

	c.JSON(status, Response{Error: &ErrorInfo{Code: appErr.Code, Message: appErr.Message}})
}
