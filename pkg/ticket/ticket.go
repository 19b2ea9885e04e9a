// Package ticket resolves the principal authenticated by a ticket-granting ticket.
//
// The ticket-granting ticket id travels in the ticket-granting cookie; Support looks it up in a
// Registry and returns the principal when the ticket exists and has not expired. Validation and
// issuance of tickets belong to the authentication service and are not implemented here.
package ticket

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// GrantingTicketPrefix is the prefix of ticket-granting ticket ids.
const GrantingTicketPrefix = "TGT"

// ErrTicketNotFound is returned by registries when no ticket is stored under the id.
var ErrTicketNotFound = errors.New("ticket not found")

// Principal is the authenticated identity attached to a ticket.
type Principal struct {
	ID         string              `json:"id"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Ticket is a ticket-granting ticket as stored by a Registry.
type Ticket struct {
	ID        string     `json:"id"`
	Principal *Principal `json:"principal"`
	CreatedAt time.Time  `json:"createdAt"`
	// ExpiresAt is zero for tickets that never expire.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// IsExpired reports whether t is expired at now.
func (t *Ticket) IsExpired(now time.Time) bool {
	if t == nil {
		return true
	}
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// NewGrantingTicket creates a ticket-granting ticket for principal valid for ttl.
// A zero ttl creates a ticket that never expires.
func NewGrantingTicket(principal *Principal, ttl time.Duration, now time.Time) *Ticket {
	t := &Ticket{
		ID:        NewTicketID(GrantingTicketPrefix),
		Principal: principal,
		CreatedAt: now,
	}
	if ttl > 0 {
		t.ExpiresAt = now.Add(ttl)
	}
	return t
}

// NewTicketID returns a new random ticket id with the given prefix, e.g. TGT-<uuid>.
func NewTicketID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Registry stores tickets.
type Registry interface {
	// GetTicket returns the ticket stored under id, or ErrTicketNotFound.
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	AddTicket(ctx context.Context, t *Ticket) error
	DeleteTicket(ctx context.Context, id string) error
}
