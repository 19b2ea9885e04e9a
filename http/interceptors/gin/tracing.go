package gin

import (
	"net/http"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/common/logger"
)

const requestIDTag = "request_id"

// TracingMiddleware continues the trace found in the request headers, or starts a new one, with
// a span tagged with the route, method, url and response code. The span is put in the request
// context, so later stages such as the MDC middleware can tag it, and its ids are added to the
// context log fields.
func TracingMiddleware(c *gin.Context) {
	route := c.FullPath()
	spanOpts := []tracer.StartSpanOption{
		tracer.Tag(ext.Component, componentName),
		tracer.Tag(ext.SpanType, ext.SpanTypeWeb),
		tracer.Tag(ext.HTTPMethod, c.Request.Method),
		tracer.Tag(ext.HTTPURL, c.Request.URL.String()),
		tracer.Tag(ext.ResourceName, c.Request.Method+" "+route),
		tracer.Tag(ext.HTTPRoute, route),
	}
	if parent, err := tracer.Extract(tracer.HTTPHeadersCarrier(c.Request.Header)); err == nil && parent != nil {
		spanOpts = append(spanOpts, tracer.ChildOf(parent))
	}
	if id := c.GetHeader(headers.HeaderXRequestID); id != "" {
		spanOpts = append(spanOpts, tracer.Tag(requestIDTag, id))
	}

	span, ctx := tracer.StartSpanFromContext(c.Request.Context(), httpHandlerOp, spanOpts...)
	defer span.Finish()

	ctx = logger.ContextWithFields(ctx, logger.WithTrace(span.Context())...)
	c.Request = c.Request.WithContext(ctx)
	c.Next()

	status := c.Writer.Status()
	span.SetTag(ext.HTTPCode, status)
	if status >= http.StatusInternalServerError {
		span.SetTag(ext.Error, true)
	}
}
