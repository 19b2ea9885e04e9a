package gin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/logger"
)

// ErrorHandlingMiddleware logs the last error attached to the gin context, tags the span with it
// and answers with the status already set by the failing stage, 500 when none was set. Timeouts
// answer 504.
func ErrorHandlingMiddleware(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 {
		return
	}
	err := c.Errors.Last().Err
	ctx := c.Request.Context()

	logger.FromContext(ctx).Error("Error in gin http handler",
		logger.String("path", c.FullPath()),
		logger.Error(err),
	)
	if env.IsLocalApplicationEnv() {
		// %+v prints the stack recorded by cockroachdb/errors
		_, _ = fmt.Fprintf(os.Stderr, "Error in gin http handler: %+v\n", err)
	}
	tagSpanAsError(ctx, "internal", err.Error())

	if c.Writer.Written() {
		return
	}
	status := errorStatus(err, c.Writer.Status())
	c.JSON(status, gin.H{
		"message": strings.ToLower(http.StatusText(status)),
	})
}

func errorStatus(err error, current int) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case current >= http.StatusBadRequest:
		return current
	default:
		return http.StatusInternalServerError
	}
}

// PanicRecoveryMiddleware recovers handler panics, logs them with their stack, tags the span and
// answers 500.
func PanicRecoveryMiddleware(c *gin.Context) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ctx := c.Request.Context()
		logger.FromContext(ctx).Error("Recovered from panic in gin http handler", logger.WithPanic(r)...)
		if env.IsLocalApplicationEnv() {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		}
		tagSpanAsError(ctx, "panic", fmt.Sprintf("%v", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "internal server error",
		})
	}()
	c.Next()
}

func tagSpanAsError(ctx context.Context, errorType string, errorMsg string) {
	span, ok := tracer.SpanFromContext(ctx)
	if ok {
		span.SetTag(ext.Error, true)
		span.SetTag(ext.ErrorType, errorType)
		span.SetTag(ext.ErrorMsg, errorMsg)
	}
}

// TimeoutMiddleware sets a timeout on the request context
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
