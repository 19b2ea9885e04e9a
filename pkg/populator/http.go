package populator

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/common/metadata"
)

// RequestOptions tune how a net/http request is turned into a Request.
type RequestOptions struct {
	// ContextPath is the path prefix the service is mounted under, e.g. /cas.
	ContextPath string
	// DefaultLocale is used when the request has no usable Accept-Language header.
	DefaultLocale language.Tag
	// FormParameters also reads url-encoded form bodies as parameters. It consumes the body.
	FormParameters bool
}

// FromHTTP builds a Request from a net/http request. Attributes are read from the request
// context, see WithAttribute.
func FromHTTP(r *http.Request, opts RequestOptions) *Request {
	req := &Request{
		ContextPath: opts.ContextPath,
		ContentType: r.Header.Get(headers.HeaderContentType),
		Protocol:    r.Proto,
		AuthType:    headers.AuthScheme(r.Header.Get(headers.HeaderAuthorization)),
		Method:      r.Method,
		Scheme:      schemeOf(r),
		Locale:      NegotiateLocale(r.Header.Get(headers.HeaderAcceptLanguage), opts.DefaultLocale),
		Attributes:  AttributesFromContext(r.Context()),
		Cookies:     r.Cookies(),
	}

	req.RemoteAddr, req.RemotePort = SplitHostPort(r.RemoteAddr)
	if user, _, ok := r.BasicAuth(); ok {
		req.RemoteUser = user
	}

	req.ServerName, req.ServerPort = SplitHostPort(r.Host)
	if req.ServerPort == 0 && req.ServerName != "" {
		req.ServerPort = defaultPort(req.Scheme)
	}

	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok && addr != nil {
		req.LocalAddr, req.LocalPort = SplitHostPort(addr.String())
	}

	if r.URL != nil {
		req.QueryString = r.URL.RawQuery
		req.RequestURI = r.URL.EscapedPath()
		req.PathInfo = strings.TrimPrefix(r.URL.Path, opts.ContextPath)
	}

	req.Parameters = parametersOf(r, opts.FormParameters)

	if r.Header != nil {
		req.Header = r.Header.Clone()
		if r.Host != "" {
			req.Header.Set(headers.HeaderHost, r.Host)
		}
	}
	return req
}

func parametersOf(r *http.Request, withForm bool) metadata.Metadata {
	if withForm {
		// ParseForm merges the query string with url-encoded bodies of POST, PUT and PATCH.
		if err := r.ParseForm(); err == nil {
			return metadata.FromValues(r.Form)
		}
	}
	if r.URL == nil {
		return nil
	}
	return metadata.FromValues(r.URL.Query())
}

func schemeOf(r *http.Request) string {
	if r.URL != nil && r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// NegotiateLocale returns the preferred tag of an Accept-Language value, or fallback when the
// value is missing or malformed.
func NegotiateLocale(acceptLanguage string, fallback language.Tag) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 || tags[0] == language.Und {
		return fallback
	}
	return tags[0]
}

// SplitHostPort splits host[:port], tolerating a missing port. Port 0 means unknown.
func SplitHostPort(hostport string) (string, int) {
	if hostport == "" {
		return "", 0
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
