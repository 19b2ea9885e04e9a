package resty

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/common/mdc"
)

const (
	httpRequestOp      = "http.request"
	restyComponentName = "resty"
)

type interceptorCfg struct {
	TracingEnabled bool
	// ForwardedEntries maps diagnostic context keys to the outgoing header carrying them
	ForwardedEntries map[string]string
	// no timeout specified, that is handled by the underlying http client config
}

type InterceptorOpt func(*interceptorCfg)

// DefaultForwardedEntries forwards the inbound request id to downstream calls.
func DefaultForwardedEntries() map[string]string {
	return map[string]string{
		http.CanonicalHeaderKey(headers.HeaderXRequestID): headers.HeaderXRequestID,
	}
}

// WithForwardedEntries replaces the diagnostic context entries copied to outgoing headers, keyed
// by entry with the header name as value. An empty map disables forwarding.
func WithForwardedEntries(entries map[string]string) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.ForwardedEntries = entries
	}
}

// WithTracingEnabled enables/disables tracing. Default is enabled.
func WithTracingEnabled(enabled bool) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.TracingEnabled = enabled
	}
}

// InjectInterceptors injects all interceptors required to get Resty requests to propagate traces and
// diagnostic context entries.
// Default behaviour can be changed by passing any of the WithXXX options.
func InjectInterceptors(client *resty.Client, opts ...InterceptorOpt) {
	cfg := &interceptorCfg{
		TracingEnabled:   true,
		ForwardedEntries: DefaultForwardedEntries(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.TracingEnabled {
		before, after := TracingMiddleware()
		client.OnBeforeRequest(before)
		client.OnAfterResponse(after)
		client.OnError(TracingErrorHook)
	}
	if len(cfg.ForwardedEntries) > 0 {
		client.OnBeforeRequest(MDCMiddleware(cfg.ForwardedEntries))
	}
}

// TracingMiddleware propagates traces from context to http headers.
// Also, creates a new span and tags it with the http method, url, status code etc.
func TracingMiddleware() (resty.RequestMiddleware, resty.ResponseMiddleware) {
	beforeRequest := func(_ *resty.Client, req *resty.Request) error {
		opts := []tracer.StartSpanOption{
			tracer.SpanType(ext.SpanTypeHTTP),
			tracer.Tag(ext.HTTPMethod, req.Method),
			tracer.Tag(ext.HTTPURL, req.URL),
			tracer.Tag(ext.Component, restyComponentName),
			tracer.Tag(ext.SpanKind, ext.SpanKindClient),
		}
		if parsedURL, err := url.Parse(req.URL); err == nil {
			opts = append(opts, tracer.Tag(ext.NetworkDestinationName, parsedURL.Hostname()))
			opts = append(opts, tracer.Tag("http.host", parsedURL.Host))
			opts = append(opts, tracer.Tag("http.path", parsedURL.Path))
		}

		span, ctx := tracer.StartSpanFromContext(req.Context(), httpRequestOp, opts...)
		req.SetContext(ctx)

		// propagate trace through the custom tracing header
		req.SetHeader(headers.HeaderXTraceID, span.Context().TraceID())

		// also propagate through DataDog's standard headers
		if err := tracer.Inject(span.Context(), tracer.HTTPHeadersCarrier(req.Header)); err != nil {
			// this should never happen
			logger.FromContext(ctx).Warn("failed to inject trace header", logger.Error(err))
		}
		return nil
	}

	afterResponse := func(_ *resty.Client, resp *resty.Response) error {
		span, ok := tracer.SpanFromContext(resp.Request.Context())
		if !ok {
			return nil // No span found, skip
		}
		span.SetTag(ext.HTTPCode, resp.StatusCode())
		span.SetTag("http.response_size", len(resp.Body()))

		if resp.StatusCode() >= 400 {
			span.SetTag(ext.Error, true)
			span.SetTag(ext.ErrorMsg, fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status()))
		}
		span.Finish()

		return nil
	}

	return beforeRequest, afterResponse
}

// TracingErrorHook finishes the request span when no response was received, e.g. on a dial error.
// resty wraps those errors in a *resty.ResponseError too, with a Response lacking RawResponse.
func TracingErrorHook(req *resty.Request, err error) {
	var respErr *resty.ResponseError
	if errors.As(err, &respErr) {
		if respErr.Response != nil && respErr.Response.RawResponse != nil {
			// the span was already finished by the response middleware
			return
		}
		err = respErr.Err
	}
	span, ok := tracer.SpanFromContext(req.Context())
	if !ok {
		return
	}
	span.Finish(tracer.WithError(err))
}

// MDCMiddleware copies the given diagnostic context entries of the calling request to the
// outgoing request headers. Missing entries are skipped.
func MDCMiddleware(entries map[string]string) resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		mc, ok := mdc.FromContext(req.Context())
		if !ok {
			return nil
		}
		for key, header := range entries {
			if value, found := mc.Get(key); found {
				req.SetHeader(header, value)
			}
		}
		return nil
	}
}
