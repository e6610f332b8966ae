package middleware

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/pkg/utils/errors"
	"github.com/kart-io/clinrag/pkg/utils/response"
)

// PanicHandler is called with the recovered value and stack trace.
type PanicHandler func(c *gin.Context, err any, stack []byte)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(false, nil)
}

// RecoveryWithOptions returns a middleware that converts panics to JSON
// error responses. The full stack is always logged; it is only returned to
// clients when enableStackTrace is set outside production.
func RecoveryWithOptions(enableStackTrace bool, onPanic PanicHandler) gin.HandlerFunc {
	if enableStackTrace && isProduction() {
		logger.Warn("Stack trace is enabled but running in production environment. " +
			"Stack trace will NOT be returned to clients.")
		enableStackTrace = false
	}

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(stack),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				if onPanic != nil {
					onPanic(c, r, stack)
				}

				e := errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v", r))
				if enableStackTrace {
					e = errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v\n%s", r, stack))
				}
				response.Fail(c, e)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// isProduction checks APP_ENV or GO_ENV.
func isProduction() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch env {
	case "production", "prod", "PRODUCTION", "PROD":
		return true
	default:
		return false
	}
}
