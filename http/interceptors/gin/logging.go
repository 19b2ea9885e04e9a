package gin

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/logcontext/common/logger"
)

type loggingCfg struct {
	debug bool
	trace bool
}

type responseWriterCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriterCapture) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// RequestLogging writes one line per request when debug is set, with the request and response
// bodies when trace is set too. The line is written with the logger of the innermost request
// context, so it carries the trace ids and the diagnostic context entries of the request.
func RequestLogging(cfg loggingCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.debug {
			c.Next()
			return
		}

		var (
			reqBody []byte
			capture *responseWriterCapture
		)
		if cfg.trace {
			reqBody = readBody(c.Request)
			capture = &responseWriterCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = capture
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("duration", time.Since(start)),
			logger.String("component", componentName),
		}
		if capture != nil {
			fields = append(fields,
				logger.ByteString("request_body", reqBody),
				logger.ByteString("response_body", capture.body.Bytes()),
			)
		}
		logger.FromContext(c.Request.Context()).Log(levelForStatus(status), "HTTP request handled", fields...)
	}
}

// readBody reads the request body and puts an identical reader back for the handlers.
func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

func levelForStatus(status int) logger.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logger.ErrorLevel
	case status >= http.StatusBadRequest:
		return logger.WarnLevel
	default:
		return logger.DebugLevel
	}
}
