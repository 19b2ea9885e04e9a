package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

const (
	// Protocol is reported for every gRPC call.
	Protocol = "HTTP/2"

	tlsAuthType = "tls"
)

// RequestFromContext builds the populator view of a gRPC call from the incoming metadata and peer
// carried by ctx. The call is reported as a POST of fullMethod over HTTP/2, metadata become the
// headers (pseudo headers excluded) and session cookies are parsed from the cookie metadata.
func RequestFromContext(ctx context.Context, fullMethod string, opts populator.RequestOptions) *populator.Request {
	md, _ := metadata.FromIncomingContext(ctx)
	header := HeaderFromMetadata(md)

	req := &populator.Request{
		Method:      http.MethodPost,
		Protocol:    Protocol,
		RequestURI:  fullMethod,
		PathInfo:    fullMethod,
		ContentType: header.Get(headers.HeaderContentType),
		AuthType:    headers.AuthScheme(header.Get(headers.HeaderAuthorization)),
		Locale:      populator.NegotiateLocale(header.Get(headers.HeaderAcceptLanguage), opts.DefaultLocale),
		Scheme:      "http",
		Attributes:  populator.AttributesFromContext(ctx),
		Header:      header,
		Cookies:     (&http.Request{Header: header}).Cookies(),
	}

	if authority := first(md, headers.MetadataAuthority); authority != "" {
		req.ServerName, req.ServerPort = populator.SplitHostPort(authority)
		header.Set(headers.HeaderHost, authority)
	}

	if p, ok := peer.FromContext(ctx); ok {
		req.RemoteAddr, req.RemotePort = SplitAddr(p.Addr)
		req.LocalAddr, req.LocalPort = SplitAddr(p.LocalAddr)
		if isTLS(p.AuthInfo) {
			req.Scheme = "https"
		}
	}
	return req
}

// HeaderFromMetadata copies md into an http.Header. Pseudo headers such as :authority are left out.
func HeaderFromMetadata(md metadata.MD) http.Header {
	header := make(http.Header, len(md))
	for name, values := range md {
		if strings.HasPrefix(name, ":") || len(values) == 0 {
			continue
		}
		for _, v := range values {
			header.Add(name, v)
		}
	}
	return header
}

// EnsureRequestID returns ctx unchanged when the incoming metadata carry a request id. Otherwise
// it generates one and adds it to the incoming metadata so it reaches the diagnostic context and
// downstream calls.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if id := first(md, headers.HeaderXRequestID); id != "" {
			return ctx, id
		}
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}

	id := uuid.NewString()
	md.Set(headers.HeaderXRequestID, id)
	return metadata.NewIncomingContext(ctx, md), id
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func isTLS(info credentials.AuthInfo) bool {
	return info != nil && info.AuthType() == tlsAuthType
}

// SplitAddr is populator.SplitHostPort applied to a net.Addr.
func SplitAddr(addr net.Addr) (string, int) {
	if addr == nil {
		return "", 0
	}
	return populator.SplitHostPort(addr.String())
}
