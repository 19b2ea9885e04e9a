package populator

import (
	"time"

	"golang.org/x/text/language"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/pkg/ticket"
)

// KeyPrefixes are prepended to the keys written for each variable source, so a parameter, an
// attribute or a header can never shadow a fixed field. Empty prefixes keep the raw names.
type KeyPrefixes struct {
	Parameter string
	Attribute string
	Header    string
}

type Option func(p *Populator)

// WithTokenStore sets the store reading the session token from the request.
func WithTokenStore(store TokenStore) Option {
	return func(p *Populator) {
		p.tokenStore = store
	}
}

// WithIdentityResolver sets the resolver turning a session token into a principal.
func WithIdentityResolver(resolver ticket.Resolver) Option {
	return func(p *Populator) {
		p.resolver = resolver
	}
}

// WithLocation sets the location whose name is written as the timezone. Default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Populator) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithDefaultLocale sets the locale used when a request does not negotiate one.
func WithDefaultLocale(tag language.Tag) Option {
	return func(p *Populator) {
		p.requestOpts.DefaultLocale = tag
	}
}

// WithContextPath sets the path prefix the service is mounted under.
func WithContextPath(path string) Option {
	return func(p *Populator) {
		p.requestOpts.ContextPath = path
	}
}

// WithFormParameters enables reading url-encoded form bodies as parameters.
func WithFormParameters(enabled bool) Option {
	return func(p *Populator) {
		p.requestOpts.FormParameters = enabled
	}
}

func WithKeyPrefixes(prefixes KeyPrefixes) Option {
	return func(p *Populator) {
		p.prefixes = prefixes
	}
}

// WithSensitiveHeaders masks the values of the named headers, see headers.Mask.
func WithSensitiveHeaders(names ...string) Option {
	return func(p *Populator) {
		p.sensitiveHeaders = append(p.sensitiveHeaders, names...)
	}
}

// WithStrictIdentity makes resolver errors fail the request instead of only dropping the
// principal. Default is disabled.
func WithStrictIdentity(strict bool) Option {
	return func(p *Populator) {
		p.strictIdentity = strict
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l *logger.Logger) Option {
	return func(p *Populator) {
		p.logger = l
	}
}

// WithClock overrides the clock used to name the timezone.
func WithClock(now func() time.Time) Option {
	return func(p *Populator) {
		p.now = now
	}
}
