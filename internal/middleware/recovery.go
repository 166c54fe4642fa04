package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/monitoring"
	appErrors "github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/response"
)

// Recovery turns a handler panic into a JSON 500. Panics caused by the client hanging
// up are logged without a stack and get no response body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			log := logger.WithModule("http").With(
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(CtxRequestIDKey)),
			)
			if isBrokenPipe(r) {
				log.Warn("client connection closed", zap.Any("error", r))
				_ = c.Error(r.(error))
				c.Abort()
				return
			}

			monitoring.RecordPanic(c.Request.Method, c.FullPath())
			log.Error("panic recovered", zap.Any("error", r), zap.Stack("stack"))
			response.Error(c, appErrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

func isBrokenPipe(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr.Err, &sysErr) {
			msg := strings.ToLower(sysErr.Error())
			return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
		}
	}
	return false
}

// NotFoundHandler answers unknown routes with a JSON 404.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, appErrors.New("ROUTE_NOT_FOUND", "route "+c.Request.URL.Path+" not found", http.StatusNotFound))
}
