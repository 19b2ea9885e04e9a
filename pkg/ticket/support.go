package ticket

import (
	"context"
	"strings"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/observability"
)

const resolveOp = "ticket.resolve"

// Support resolves the authenticated principal of a ticket-granting ticket.
type Support struct {
	registry Registry
	now      func() time.Time
}

// SupportOption configures Support.
type SupportOption func(*Support)

// WithClock overrides the clock used to check ticket expiration.
func WithClock(now func() time.Time) SupportOption {
	return func(s *Support) {
		s.now = now
	}
}

// NewSupport creates a Support backed by registry.
func NewSupport(registry Registry, opts ...SupportOption) *Support {
	s := &Support{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveIdentity returns the principal authenticated by the ticket id.
// Unknown, expired and principal-less tickets resolve to nil without error; registry failures are
// returned.
func (s *Support) ResolveIdentity(ctx context.Context, ticketID string) (_ *Principal, err error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, nil
	}

	span, ctx := observability.StartSpan(ctx, resolveOp)
	defer func() { span.Finish(tracer.WithError(err)) }()

	t, getErr := s.registry.GetTicket(ctx, ticketID)
	if errors.Is(getErr, ErrTicketNotFound) {
		logger.FromContext(ctx).Debug("ticket not found in registry")
		return nil, nil
	}
	if getErr != nil {
		return nil, errors.Wrap(getErr, "failed to get ticket from registry")
	}

	if t.IsExpired(s.now()) {
		logger.FromContext(ctx).Debug("ticket is expired", logger.Time("expires_at", t.ExpiresAt))
		return nil, nil
	}
	if t.Principal == nil || strings.TrimSpace(t.Principal.ID) == "" {
		return nil, nil
	}
	return t.Principal, nil
}
