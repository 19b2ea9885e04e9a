// Package populator fills the request diagnostic context.
//
// For every request the Populator extracts request parameters, attributes, headers and a fixed
// set of network and protocol fields into a fresh mdc.Context, adds the authenticated principal
// resolved from the session token, calls the next stage with a context carrying it, and clears it
// before returning, whatever the outcome of the next stage.
//
// Sources are written in a fixed order: parameters, attributes, headers, fixed fields and finally
// the principal. When names collide the later source wins, so client-controlled names never shadow
// server-derived fields and the principal cannot be spoofed. Use WithKeyPrefixes to keep every
// source apart instead.
package populator

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/common/mdc"
	"github.com/rainbow-me/logcontext/observability"
	"github.com/rainbow-me/logcontext/pkg/ticket"
)

// Keys of the fixed fields.
const (
	KeyRemoteAddress = "remoteAddress"
	KeyRemoteUser    = "remoteUser"
	KeyServerName    = "serverName"
	KeyServerPort    = "serverPort"
	KeyLocale        = "locale"
	KeyContentType   = "contentType"
	KeyContextPath   = "contextPath"
	KeyLocalAddress  = "localAddress"
	KeyLocalPort     = "localPort"
	KeyRemotePort    = "remotePort"
	KeyPathInfo      = "pathInfo"
	KeyProtocol      = "protocol"
	KeyAuthType      = "authType"
	KeyMethod        = "method"
	KeyQueryString   = "queryString"
	KeyRequestURI    = "requestUri"
	KeyScheme        = "scheme"
	KeyTimezone      = "timezone"
	KeyPrincipal     = mdc.PrincipalKey
)

// userIDTag is the Datadog span tag identifying the authenticated user.
const userIDTag = "usr.id"

// Handler is the rest of the pipeline. ctx carries the populated mdc.Context and a logger
// holding its entries.
type Handler func(ctx context.Context) error

// TokenStore extracts the session token from a request. A request without token yields "", nil.
type TokenStore interface {
	RetrieveToken(ctx context.Context, r *Request) (string, error)
}

// Stage is a request pipeline stage with a life cycle.
type Stage interface {
	Initialize(cfg map[string]string) error
	Handle(ctx context.Context, req any, next Handler) error
	Teardown()
}

var _ Stage = (*Populator)(nil)

type Populator struct {
	tokenStore       TokenStore
	resolver         ticket.Resolver
	location         *time.Location
	now              func() time.Time
	requestOpts      RequestOptions
	prefixes         KeyPrefixes
	sensitiveHeaders []string
	strictIdentity   bool
	logger           *logger.Logger
}

func New(opts ...Option) *Populator {
	p := &Populator{
		location: time.Local,
		now:      time.Now,
		requestOpts: RequestOptions{
			DefaultLocale: language.Und,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize accepts and ignores the stage configuration.
func (p *Populator) Initialize(map[string]string) error {
	return nil
}

// Teardown does nothing.
func (p *Populator) Teardown() {}

// RequestOptions returns the options used to convert net/http requests.
func (p *Populator) RequestOptions() RequestOptions {
	return p.requestOpts
}

// Handle populates a new diagnostic context from req, runs next with it and clears it.
//
// req must be a *Request, an *http.Request or a RequestSource, and next must not be nil;
// otherwise a *ContractError is returned and nothing is extracted. Errors returned by next are
// returned unchanged and panics are propagated, both after the context is cleared.
func (p *Populator) Handle(ctx context.Context, req any, next Handler) error {
	r, err := p.requestOf(req)
	if err != nil {
		return err
	}
	if next == nil {
		return newContractError(next, "next stage is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.logger != nil && !logger.HasLogger(ctx) {
		ctx = logger.ContextWithLogger(ctx, p.logger)
	}

	mc := mdc.New()
	defer mc.Clear()
	ctx = mdc.NewContext(ctx, mc)

	p.putParameters(mc, r)
	p.putAttributes(mc, r)
	p.putHeaders(mc, r)
	p.putFixedFields(mc, r)

	principal, err := p.resolvePrincipal(ctx, r)
	if err != nil {
		return err
	}
	if mc.Put(KeyPrincipal, principal) {
		observability.SetTag(ctx, userIDTag, principal)
	}

	ctx = logger.ContextWithFields(ctx, mc.Fields()...)
	return next(ctx)
}

func (p *Populator) requestOf(req any) (*Request, error) {
	switch r := req.(type) {
	case *Request:
		if r != nil {
			return r, nil
		}
	case *http.Request:
		if r != nil {
			return FromHTTP(r, p.requestOpts), nil
		}
	case RequestSource:
		if r != nil {
			if converted := r.PopulatorRequest(); converted != nil {
				return converted, nil
			}
		}
	}
	return nil, newContractError(req, "request must be a *populator.Request, an *http.Request or a RequestSource")
}

func (p *Populator) putParameters(mc *mdc.Context, r *Request) {
	for _, name := range r.Parameters.Names() {
		mc.Put(p.prefixes.Parameter+name, r.Parameters.Render(name))
	}
}

func (p *Populator) putAttributes(mc *mdc.Context, r *Request) {
	for name, value := range r.Attributes {
		if s, ok := FormatValue(value); ok {
			mc.Put(p.prefixes.Attribute+name, s)
		}
	}
}

func (p *Populator) putHeaders(mc *mdc.Context, r *Request) {
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if headers.IsSensitive(name, p.sensitiveHeaders) && !mdc.IsBlank(value) {
			value = headers.Mask(value)
		}
		mc.Put(p.prefixes.Header+name, value)
	}
}

func (p *Populator) putFixedFields(mc *mdc.Context, r *Request) {
	mc.Put(KeyRemoteAddress, r.RemoteAddr)
	mc.Put(KeyRemoteUser, r.RemoteUser)
	mc.Put(KeyServerName, r.ServerName)
	mc.Put(KeyServerPort, formatPort(r.ServerPort))
	mc.Put(KeyLocale, localeName(r.Locale))
	mc.Put(KeyContentType, r.ContentType)
	mc.Put(KeyContextPath, r.ContextPath)
	mc.Put(KeyLocalAddress, r.LocalAddr)
	mc.Put(KeyLocalPort, formatPort(r.LocalPort))
	mc.Put(KeyRemotePort, formatPort(r.RemotePort))
	mc.Put(KeyPathInfo, r.PathInfo)
	mc.Put(KeyProtocol, r.Protocol)
	mc.Put(KeyAuthType, r.AuthType)
	mc.Put(KeyMethod, r.Method)
	mc.Put(KeyQueryString, r.QueryString)
	mc.Put(KeyRequestURI, r.RequestURI)
	mc.Put(KeyScheme, r.Scheme)
	mc.Put(KeyTimezone, timezoneName(p.location, p.now()))
}

// resolvePrincipal returns the id of the principal authenticated by the request session token,
// or "" when there is none. Collaborator errors are only returned in strict mode.
func (p *Populator) resolvePrincipal(ctx context.Context, r *Request) (string, error) {
	if p.tokenStore == nil || p.resolver == nil {
		return "", nil
	}

	token, err := p.tokenStore.RetrieveToken(ctx, r)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to retrieve session token", logger.Error(err))
		return "", nil
	}
	if mdc.IsBlank(token) {
		return "", nil
	}

	principal, err := p.resolver.ResolveIdentity(ctx, token)
	if err != nil {
		if p.strictIdentity {
			return "", errors.Wrap(err, "failed to resolve identity")
		}
		logger.FromContext(ctx).Warn("Failed to resolve identity, continuing without principal", logger.Error(err))
		return "", nil
	}
	if principal == nil {
		return "", nil
	}
	return principal.ID, nil
}

func formatPort(port int) string {
	if port <= 0 {
		return ""
	}
	return strconv.Itoa(port)
}

func localeName(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	return display.Tags(language.English).Name(tag)
}

// timezoneName names loc, falling back to the zone abbreviation at now for the unnamed
// local location.
func timezoneName(loc *time.Location, now time.Time) string {
	if loc == nil {
		return ""
	}
	if name := loc.String(); name != "" && name != "Local" {
		return name
	}
	name, _ := now.In(loc).Zone()
	return name
}
