// Package metadata holds multi-valued request data such as query and form parameters or gRPC
// metadata. Unlike http.Header, names are kept exactly as received.
package metadata

import (
	"maps"
	"net/url"
	"slices"
	"strings"
)

type Metadata map[string][]string

// FromValues copies url.Values, e.g. a parsed query string or form.
func FromValues(v url.Values) Metadata {
	return FromMap(v)
}

// FromMap copies a multi-valued map such as grpc metadata.MD.
func FromMap(m map[string][]string) Metadata {
	md := make(Metadata, len(m))
	for k, vals := range m {
		md[k] = copyOf(vals)
	}
	return md
}

func (md Metadata) Copy() Metadata {
	return FromMap(md)
}

// Get obtains the values for a given name.
func (md Metadata) Get(k string) []string {
	return md[k]
}

// First returns the first value of k, or an empty string.
func (md Metadata) First(k string) string {
	if vals := md[k]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Set sets the value of a given name with a slice of values.
func (md Metadata) Set(k string, vals ...string) {
	if len(vals) == 0 {
		return
	}
	md[k] = vals
}

// Append adds the values to name k, not overwriting what was already stored.
func (md Metadata) Append(k string, vals ...string) {
	if len(vals) == 0 {
		return
	}
	md[k] = append(md[k], vals...)
}

// Merge appends every value of other.
func (md Metadata) Merge(other Metadata) {
	for k, vals := range other {
		md.Append(k, vals...)
	}
}

func (md Metadata) Delete(k string) {
	delete(md, k)
}

// Names returns the names in lexical order.
func (md Metadata) Names() []string {
	return slices.Sorted(maps.Keys(md))
}

// Render formats all values of k as a single display string, e.g. "[v1, v2]".
func (md Metadata) Render(k string) string {
	return RenderValues(md[k])
}

// RenderValues formats values as "[v1, v2]". A nil slice renders as "[]".
func RenderValues(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}

func copyOf(v []string) []string {
	vals := make([]string, len(v))
	copy(vals, v)
	return vals
}
