package gin

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/logcontext/pkg/populator"
)

// MDCMiddleware populates the request diagnostic context for the rest of the chain and clears it
// once the chain returns. Values set with c.Set by earlier middlewares are written as attributes.
// If the context cannot be populated the request is aborted and the error is left to
// ErrorHandlingMiddleware: 503 when the identity could not be resolved, 500 otherwise.
func MDCMiddleware(p *populator.Populator) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := populator.FromHTTP(c.Request, p.RequestOptions())
		req.Attributes = attributesOf(c, req.Attributes)

		called := false
		err := p.Handle(c.Request.Context(), req, func(ctx context.Context) error {
			called = true
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return nil
		})
		if err == nil || called {
			return
		}
		if !errors.Is(err, populator.ErrUnsupportedRequest) {
			c.Status(http.StatusServiceUnavailable)
		}
		_ = c.Error(err)
		c.Abort()
	}
}

// attributesOf merges the values set with c.Set over the request attributes. The keys are read
// through c.Copy, which holds the context lock, since handlers may c.Set from other goroutines.
func attributesOf(c *gin.Context, fromContext populator.Attributes) populator.Attributes {
	keys := c.Copy().Keys
	if len(keys) == 0 {
		return fromContext
	}
	attrs := make(populator.Attributes, len(fromContext)+len(keys))
	for k, v := range fromContext {
		attrs[k] = v
	}
	for k, v := range keys {
		attrs[k] = v
	}
	return attrs
}
