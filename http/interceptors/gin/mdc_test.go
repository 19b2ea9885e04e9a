package gin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/mocktracer"
	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/common/mdc"
	"github.com/rainbow-me/logcontext/pkg/cookie"
	"github.com/rainbow-me/logcontext/pkg/populator"
	"github.com/rainbow-me/logcontext/pkg/ticket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newPopulator(t *testing.T, opts ...populator.Option) (*populator.Populator, string) {
	t.Helper()
	registry := ticket.NewMemoryRegistry()
	tgt := ticket.NewGrantingTicket(&ticket.Principal{ID: "alice"}, time.Hour, time.Now())
	require.NoError(t, registry.AddTicket(context.Background(), tgt))

	opts = append([]populator.Option{
		populator.WithTokenStore(cookie.NewStore("")),
		populator.WithIdentityResolver(ticket.NewSupport(registry)),
	}, opts...)
	return populator.New(opts...), tgt.ID
}

func newEngine(p *populator.Populator, handler gin.HandlerFunc, before ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(before...)
	engine.Use(DefaultInterceptors(
		WithPopulator(p),
		WithTracingEnabled(false),
		WithCompressionLevel(gzip.NoCompression),
	)...)
	engine.GET("/cas/login", handler)
	return engine
}

func TestMDCMiddleware(t *testing.T) {
	p, tgt := newPopulator(t, populator.WithContextPath("/cas"))

	var (
		seen map[string]string
		mc   *mdc.Context
	)
	setFlow := func(c *gin.Context) {
		c.Set("flowId", "e1s1")
		c.Next()
	}
	engine := newEngine(p, func(c *gin.Context) {
		mc, _ = mdc.FromContext(c.Request.Context())
		seen = mc.ToMap()
		c.Status(http.StatusOK)
	}, setFlow)

	r := httptest.NewRequest(http.MethodGet, "/cas/login?service=app", nil)
	r.AddCookie(&http.Cookie{Name: cookie.DefaultName, Value: tgt})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", seen[mdc.PrincipalKey])
	assert.Equal(t, "e1s1", seen["flowId"])
	assert.Equal(t, "[app]", seen["service"])
	assert.Equal(t, "/login", seen[populator.KeyPathInfo])
	require.NotNil(t, mc)
	assert.True(t, mc.Cleared())
	assert.Zero(t, mc.Len())
}

func TestMDCMiddlewareSequentialRequests(t *testing.T) {
	p, tgt := newPopulator(t)

	var seen []map[string]string
	engine := newEngine(p, func(c *gin.Context) {
		mc, _ := mdc.FromContext(c.Request.Context())
		seen = append(seen, mc.ToMap())
	})

	first := httptest.NewRequest(http.MethodGet, "/cas/login?a=1", nil)
	first.AddCookie(&http.Cookie{Name: cookie.DefaultName, Value: tgt})
	engine.ServeHTTP(httptest.NewRecorder(), first)
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cas/login?b=2", nil))

	require.Len(t, seen, 2)
	assert.Equal(t, "alice", seen[0][mdc.PrincipalKey])
	assert.Equal(t, "[1]", seen[0]["a"])
	assert.NotContains(t, seen[1], mdc.PrincipalKey)
	assert.NotContains(t, seen[1], "a")
	assert.Equal(t, "[2]", seen[1]["b"])
}

func TestMDCMiddlewarePanicIsRecoveredAfterCleanup(t *testing.T) {
	p, _ := newPopulator(t)

	var mc *mdc.Context
	engine := newEngine(p, func(c *gin.Context) {
		mc, _ = mdc.FromContext(c.Request.Context())
		panic("boom")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cas/login", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, mc)
	assert.True(t, mc.Cleared())
}

func TestMDCMiddlewareHandlerErrorAfterCleanup(t *testing.T) {
	p, _ := newPopulator(t)

	var mc *mdc.Context
	engine := newEngine(p, func(c *gin.Context) {
		mc, _ = mdc.FromContext(c.Request.Context())
		_ = c.Error(errors.New("handler failed"))
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cas/login", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, mc)
	assert.True(t, mc.Cleared())
}

type failingResolver struct{}

func (failingResolver) ResolveIdentity(context.Context, string) (*ticket.Principal, error) {
	return nil, errors.New("registry unavailable")
}

func TestMDCMiddlewareStrictIdentityAborts(t *testing.T) {
	p := populator.New(
		populator.WithTokenStore(cookie.NewStore("")),
		populator.WithIdentityResolver(failingResolver{}),
		populator.WithStrictIdentity(true),
	)

	called := false
	engine := newEngine(p, func(*gin.Context) {
		called = true
	})

	r := httptest.NewRequest(http.MethodGet, "/cas/login", nil)
	r.AddCookie(&http.Cookie{Name: cookie.DefaultName, Value: "TGT-1"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDefaultInterceptorsWithoutPopulator(t *testing.T) {
	var found bool
	engine := gin.New()
	engine.Use(DefaultInterceptors(WithTracingEnabled(false))...)
	engine.GET("/", func(c *gin.Context) {
		_, found = mdc.FromContext(c.Request.Context())
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
}

func TestMDCMiddlewareTagsRequestSpan(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	p, tgt := newPopulator(t)
	engine := gin.New()
	engine.Use(DefaultInterceptors(WithPopulator(p))...)
	engine.GET("/cas/login", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r := httptest.NewRequest(http.MethodGet, "/cas/login", nil)
	r.AddCookie(&http.Cookie{Name: cookie.DefaultName, Value: tgt})
	r.Header.Set("X-Request-Id", "req-7")
	engine.ServeHTTP(httptest.NewRecorder(), r)

	var handlerSpan *mocktracer.Span
	for _, s := range mt.FinishedSpans() {
		if s.OperationName() == httpHandlerOp {
			handlerSpan = s
		}
	}
	require.NotNil(t, handlerSpan)
	assert.Equal(t, "alice", handlerSpan.Tag("usr.id"))
	assert.Equal(t, "req-7", handlerSpan.Tag(requestIDTag))
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, errorStatus(errors.Wrap(context.DeadlineExceeded, "slow"), http.StatusOK))
	assert.Equal(t, http.StatusServiceUnavailable, errorStatus(errors.New("down"), http.StatusServiceUnavailable))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("boom"), http.StatusOK))
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, logger.ErrorLevel, levelForStatus(http.StatusBadGateway))
	assert.Equal(t, logger.WarnLevel, levelForStatus(http.StatusNotFound))
	assert.Equal(t, logger.DebugLevel, levelForStatus(http.StatusOK))
}

func TestAttributesOfWhileKeysAreSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("flowId", "abc")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 500 {
			c.Set("step-"+strconv.Itoa(i), i)
		}
	}()
	for range 500 {
		attrs := attributesOf(c, populator.Attributes{"origin": "request"})
		assert.Equal(t, "abc", attrs["flowId"])
		assert.Equal(t, "request", attrs["origin"])
	}
	<-done

	assert.Len(t, attributesOf(c, nil), 501)
}
