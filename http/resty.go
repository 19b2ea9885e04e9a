package http

import (
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/logcontext/common/logger"
	interceptors "github.com/rainbow-me/logcontext/http/interceptors/resty"
)

// NewRestyWithClient returns a resty client over client with the tracing and diagnostic context
// interceptors installed. log, when set, receives resty's own log output.
func NewRestyWithClient(client *http.Client, log *logger.Logger, opt ...interceptors.InterceptorOpt) *resty.Client {
	restyClient := resty.NewWithClient(client)
	interceptors.InjectInterceptors(restyClient, opt...)

	if log != nil {
		restyClient.SetLogger((*logger.Adapter)(log))
	}
	return restyClient
}
