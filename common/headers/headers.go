package headers

import "strings"

// Request Identification Headers
const (
	// HeaderXRequestID is used to uniquely identify individual HTTP requests
	// for logging, debugging, and tracking purposes across the application
	HeaderXRequestID = "x-request-id"

	// HeaderXTraceID carries the Datadog trace id on outgoing calls
	HeaderXTraceID = "x-trace-id"

	// HeaderXSpanID carries the Datadog span id on responses
	HeaderXSpanID = "x-span-id"
)

// Authentication Headers
const (
	// HeaderAuthorization is the standard HTTP header used to carry authentication
	// credentials such as Bearer tokens, Basic auth, or API keys
	// Format examples: "Bearer <token>", "Basic <base64-encoded-credentials>"
	HeaderAuthorization = "authorization"

	// HeaderProxyAuthorization carries credentials for an intermediate proxy
	HeaderProxyAuthorization = "proxy-authorization"

	// HeaderCookie carries the session cookies, including the ticket-granting cookie
	HeaderCookie = "cookie"

	// HeaderSetCookie is only seen on responses but is masked like the request side
	HeaderSetCookie = "set-cookie"
)

// Content negotiation and routing headers
const (
	HeaderAcceptLanguage = "accept-language"
	HeaderContentType    = "content-type"
	HeaderHost           = "host"
	HeaderUserAgent      = "user-agent"
)

// Proxy headers, rewritten into the request by gorilla/handlers.ProxyHeaders
const (
	HeaderXForwardedFor   = "x-forwarded-for"
	HeaderXForwardedProto = "x-forwarded-proto"
	HeaderXForwardedHost  = "x-forwarded-host"
)

// gRPC pseudo metadata
const (
	// MetadataAuthority is the :authority pseudo header as exposed by grpc-go
	MetadataAuthority = ":authority"
)

// SensitiveHeaders lists the headers whose values must be masked before being logged.
func SensitiveHeaders() []string {
	return []string{
		HeaderAuthorization,
		HeaderProxyAuthorization,
		HeaderCookie,
		HeaderSetCookie,
	}
}

// AuthScheme returns the scheme of an Authorization header value: Bearer, Basic, Digest or
// ApiKey. Empty values give an empty scheme, anything else gives Unknown.
func AuthScheme(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(value, "bearer "):
		return "Bearer"
	case strings.HasPrefix(value, "basic "):
		return "Basic"
	case strings.HasPrefix(value, "digest "):
		return "Digest"
	case strings.HasPrefix(value, "apikey "):
		return "ApiKey"
	default:
		return "Unknown"
	}
}

// Mask hides a credential, keeping its first and last four characters when it is long enough.
func Mask(value string) string {
	if len(value) <= 10 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// IsSensitive reports whether name is one of sensitive, compared case-insensitively.
func IsSensitive(name string, sensitive []string) bool {
	for _, s := range sensitive {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
