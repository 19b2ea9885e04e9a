package populator

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/rainbow-me/logcontext/common/metadata"
)

// Request is a host-neutral view of an inbound request. Every field is optional: zero values
// (empty strings, port 0, language.Und, nil maps) mean the facet is unknown and it is left out of
// the context.
type Request struct {
	RemoteAddr string
	RemotePort int
	RemoteUser string

	ServerName string
	ServerPort int

	LocalAddr string
	LocalPort int

	Locale      language.Tag
	ContentType string
	ContextPath string
	PathInfo    string
	Protocol    string
	AuthType    string
	Method      string
	QueryString string
	RequestURI  string
	Scheme      string

	Parameters metadata.Metadata
	Attributes Attributes
	// Header may be nil, which is treated as no headers at all.
	Header  http.Header
	Cookies []*http.Cookie
}

// RequestSource is implemented by host request types that can describe themselves as a Request.
type RequestSource interface {
	PopulatorRequest() *Request
}

// Cookie returns the first cookie named name.
func (r *Request) Cookie(name string) (*http.Cookie, bool) {
	if r == nil {
		return nil, false
	}
	for _, c := range r.Cookies {
		if c != nil && c.Name == name {
			return c, true
		}
	}
	return nil, false
}
