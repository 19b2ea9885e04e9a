package cookie

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/logcontext/pkg/populator"
)

func TestNewStoreDefaultsName(t *testing.T) {
	assert.Equal(t, DefaultName, NewStore("").Name())
	assert.Equal(t, DefaultName, NewStore("  ").Name())
	assert.Equal(t, "CASTGC", NewStore("CASTGC").Name())
}

func TestRetrieveToken(t *testing.T) {
	tests := []struct {
		name    string
		request *populator.Request
		want    string
	}{
		{
			name:    "nil request",
			request: nil,
			want:    "",
		},
		{
			name:    "no cookies",
			request: &populator.Request{},
			want:    "",
		},
		{
			name: "other cookies only",
			request: &populator.Request{Cookies: []*http.Cookie{
				{Name: "JSESSIONID", Value: "abc"},
			}},
			want: "",
		},
		{
			name: "blank cookie",
			request: &populator.Request{Cookies: []*http.Cookie{
				{Name: DefaultName, Value: "   "},
			}},
			want: "",
		},
		{
			name: "ticket-granting cookie",
			request: &populator.Request{Cookies: []*http.Cookie{
				{Name: "JSESSIONID", Value: "abc"},
				{Name: DefaultName, Value: "TGT-1-abc"},
			}},
			want: "TGT-1-abc",
		},
		{
			name: "escaped value",
			request: &populator.Request{Cookies: []*http.Cookie{
				{Name: DefaultName, Value: "TGT-1%2Babc"},
			}},
			want: "TGT-1+abc",
		},
	}

	store := NewStore("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := store.RetrieveToken(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestRetrieveTokenFromHTTPRequest(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "http://cas.example.org/login", nil)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: DefaultName, Value: "TGT-42"})

	token, err := NewStore("").RetrieveToken(context.Background(), populator.FromHTTP(r, populator.RequestOptions{}))
	require.NoError(t, err)
	assert.Equal(t, "TGT-42", token)
}
