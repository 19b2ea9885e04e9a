package ticket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/logcontext/pkg/ticket"
)

// fakeRegistryServer serves the ticket registry REST endpoint from memory.
func fakeRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		mu      sync.Mutex
		tickets = map[string][]byte{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/tickets/")
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if id == "TGT-broken" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			body, ok := tickets[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		case http.MethodPut:
			var tk ticket.Ticket
			if err := json.NewDecoder(r.Body).Decode(&tk); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			body, _ := json.Marshal(tk)
			tickets[id] = body
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			if _, ok := tickets[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(tickets, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRESTRegistry(t *testing.T) {
	ctx := context.Background()
	srv := fakeRegistryServer(t)
	registry := ticket.NewRESTRegistry(resty.New().SetBaseURL(srv.URL))

	tk := ticket.NewGrantingTicket(&ticket.Principal{ID: "alice"}, time.Hour, time.Now())
	require.NoError(t, registry.AddTicket(ctx, tk))

	got, err := registry.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Principal.ID)

	p, err := ticket.NewSupport(registry).ResolveIdentity(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.ID)

	require.NoError(t, registry.DeleteTicket(ctx, tk.ID))
	require.NoError(t, registry.DeleteTicket(ctx, tk.ID), "deleting a missing ticket is not an error")

	_, err = registry.GetTicket(ctx, tk.ID)
	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
}

func TestRESTRegistryServerError(t *testing.T) {
	srv := fakeRegistryServer(t)
	registry := ticket.NewRESTRegistry(resty.New().SetBaseURL(srv.URL))

	_, err := registry.GetTicket(context.Background(), "TGT-broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ticket.ErrTicketNotFound)

	require.Error(t, registry.AddTicket(context.Background(), nil))
}
