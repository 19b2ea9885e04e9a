package ticket

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

const ticketPath = "/tickets/{id}"

// RESTRegistry reads and writes tickets through the ticket registry REST endpoint of a remote
// authentication node:
//
//	GET    {base}/tickets/{id}  -> 200 Ticket | 404
//	PUT    {base}/tickets/{id}  <- Ticket
//	DELETE {base}/tickets/{id}
type RESTRegistry struct {
	client *resty.Client
}

// NewRESTRegistry creates a registry using client, whose base URL must point at the registry.
// Use http.NewRestyWithClient to get a client with tracing and logging wired in.
func NewRESTRegistry(client *resty.Client) *RESTRegistry {
	return &RESTRegistry{client: client}
}

func (r *RESTRegistry) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	var t Ticket
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&t).
		Get(ticketPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ticket")
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &t, nil
	case http.StatusNotFound:
		return nil, ErrTicketNotFound
	default:
		return nil, errors.Newf("unexpected ticket registry response: %s", resp.Status())
	}
}

func (r *RESTRegistry) AddTicket(ctx context.Context, t *Ticket) error {
	if t == nil || t.ID == "" {
		return errors.New("ticket id is required")
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", t.ID).
		SetBody(t).
		Put(ticketPath)
	if err != nil {
		return errors.Wrap(err, "failed to put ticket")
	}
	if resp.IsError() {
		return errors.Newf("unexpected ticket registry response: %s", resp.Status())
	}
	return nil
}

func (r *RESTRegistry) DeleteTicket(ctx context.Context, id string) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete(ticketPath)
	if err != nil {
		return errors.Wrap(err, "failed to delete ticket")
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return errors.Newf("unexpected ticket registry response: %s", resp.Status())
	}
	return nil
}
