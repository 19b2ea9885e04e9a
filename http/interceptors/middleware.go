// Package interceptors holds the net/http middlewares.
package interceptors

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

// MDCMiddleware runs every request through p so that the wrapped handler sees a populated
// diagnostic context in r.Context(). The context is cleared once the handler returns or panics.
// Panics are not recovered here. A request whose context cannot be populated is answered 503
// when its identity could not be resolved, 500 otherwise.
func MDCMiddleware(p *populator.Populator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := populator.FromHTTP(r, p.RequestOptions())
			err := p.Handle(r.Context(), req, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err == nil {
				return
			}
			logger.FromContext(r.Context()).Error("Failed to populate request context", logger.Error(err))
			status := http.StatusServiceUnavailable
			if errors.Is(err, populator.ErrUnsupportedRequest) {
				status = http.StatusInternalServerError
			}
			http.Error(w, http.StatusText(status), status)
		})
	}
}
