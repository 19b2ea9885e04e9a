package logger

import (
	"fmt"
	"strconv"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Field = zap.Field

var (
	Any        = zap.Any
	Array      = zap.Array
	Bool       = zap.Bool
	ByteString = zap.ByteString
	Duration   = zap.Duration
	Float64    = zap.Float64
	Int        = zap.Int
	Int64      = zap.Int64
	String     = zap.String
	Strings    = zap.Strings
	Time       = zap.Time
	Uint64     = zap.Uint64
	Error      = zap.Error
	Errors     = zap.Errors
)

type Level zapcore.Level

const (
	DebugLevel  = Level(zapcore.DebugLevel)
	InfoLevel   = Level(zapcore.InfoLevel)
	WarnLevel   = Level(zapcore.WarnLevel)
	ErrorLevel  = Level(zapcore.ErrorLevel)
	DPanicLevel = Level(zapcore.DPanicLevel)
	PanicLevel  = Level(zapcore.PanicLevel)
	FatalLevel  = Level(zapcore.FatalLevel)
)

// Log field keys shared by the interceptors
const (
	StackTraceKey = "stack_trace"
	PanicValueKey = "panic_value"
	PanicTypeKey  = "panic_type"
	TraceIDKey    = "dd.trace_id"
	SpanIDKey     = "dd.span_id"
)

// WithPanic returns the fields describing a recovered panic value.
func WithPanic(panicValue any) []Field {
	return []Field{
		zap.String(PanicValueKey, fmt.Sprintf("%v", panicValue)),
		zap.String(PanicTypeKey, fmt.Sprintf("%T", panicValue)),
		zap.Stack(StackTraceKey),
	}
}

// WithTrace returns the fields correlating a log line with a Datadog span.
func WithTrace(spanCtx *tracer.SpanContext) []Field {
	if spanCtx == nil {
		return nil
	}
	return []Field{
		zap.String(TraceIDKey, spanCtx.TraceID()),
		zap.String(SpanIDKey, strconv.FormatUint(spanCtx.SpanID(), 10)),
	}
}
