// Package cookie reads the ticket-granting cookie of a request.
package cookie

import (
	"context"
	"net/url"
	"strings"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

// DefaultName is the name of the ticket-granting cookie.
const DefaultName = "TGC"

// Store retrieves the ticket-granting ticket id carried by the ticket-granting cookie.
// The cookie value is read as is; cookie encryption is handled upstream.
type Store struct {
	name string
}

var _ populator.TokenStore = (*Store)(nil)

// NewStore creates a Store reading the cookie called name, DefaultName when empty.
func NewStore(name string) *Store {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return &Store{name: name}
}

func (s *Store) Name() string {
	return s.name
}

// RetrieveToken returns the cookie value, or "" when the request carries no such cookie or its
// value is blank. It never fails.
func (s *Store) RetrieveToken(ctx context.Context, r *populator.Request) (string, error) {
	c, ok := r.Cookie(s.name)
	if !ok {
		return "", nil
	}

	value := c.Value
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	value = strings.TrimSpace(value)
	if value == "" {
		logger.FromContext(ctx).Debug("Blank ticket-granting cookie", logger.String("cookie", s.name))
	}
	return value, nil
}
