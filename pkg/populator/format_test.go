package populator

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

type codeError struct{ code int }

func (e *codeError) Error() string { return "code " + strconv.Itoa(e.code) }

type ticketRef struct{ id string }

func (r *ticketRef) String() string { return r.id }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   string
		wantOK bool
	}{
		{name: "nil", value: nil},
		{name: "string", value: "abc", want: "abc", wantOK: true},
		{name: "string slice", value: []string{"a", "b"}, want: "[a, b]", wantOK: true},
		{name: "bytes", value: []byte("raw"), want: "raw", wantOK: true},
		{name: "bool", value: false, want: "false", wantOK: true},
		{name: "int", value: -42, want: "-42", wantOK: true},
		{name: "int8", value: int8(8), want: "8", wantOK: true},
		{name: "int16", value: int16(16), want: "16", wantOK: true},
		{name: "int32", value: int32(32), want: "32", wantOK: true},
		{name: "int64", value: int64(64), want: "64", wantOK: true},
		{name: "uint", value: uint(1), want: "1", wantOK: true},
		{name: "uint8", value: uint8(8), want: "8", wantOK: true},
		{name: "uint16", value: uint16(16), want: "16", wantOK: true},
		{name: "uint32", value: uint32(32), want: "32", wantOK: true},
		{name: "uint64", value: uint64(64), want: "64", wantOK: true},
		{name: "float32", value: float32(1.5), want: "1.5", wantOK: true},
		{name: "float64", value: 0.25, want: "0.25", wantOK: true},
		{name: "time", value: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), want: "2024-05-01T12:00:00Z", wantOK: true},
		{name: "zero time", value: time.Time{}},
		{name: "duration", value: 1500 * time.Millisecond, want: "1.5s", wantOK: true},
		{name: "language tag", value: language.MustParse("pt-BR"), want: "pt-BR", wantOK: true},
		{name: "undefined language", value: language.Und},
		{name: "error", value: errors.New("boom"), want: "boom", wantOK: true},
		{name: "stringer", value: net.IPv4(10, 0, 0, 1), want: "10.0.0.1", wantOK: true},
		{name: "pointer error", value: &codeError{code: 7}, want: "code 7", wantOK: true},
		{name: "typed nil error", value: (*codeError)(nil)},
		{name: "pointer stringer", value: &ticketRef{id: "TGT-1"}, want: "TGT-1", wantOK: true},
		{name: "typed nil stringer", value: (*ticketRef)(nil)},
		{name: "nil ip", value: net.IP(nil)},
		{name: "map", value: map[string]int{"a": 1}},
		{name: "struct", value: struct{ A int }{A: 1}},
		{name: "int slice", value: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatValue(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
