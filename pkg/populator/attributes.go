package populator

import (
	"context"
	"maps"
)

// Attributes are request-scoped values set by earlier pipeline stages, e.g. gin's c.Keys.
type Attributes map[string]any

type attributesKey struct{}

// WithAttribute returns a copy of ctx whose attributes include name=value.
// The attributes already in ctx are copied, never modified.
func WithAttribute(ctx context.Context, name string, value any) context.Context {
	if name == "" {
		return ctx
	}
	attrs := maps.Clone(AttributesFromContext(ctx))
	if attrs == nil {
		attrs = make(Attributes, 1)
	}
	attrs[name] = value
	return context.WithValue(ctx, attributesKey{}, attrs)
}

// AttributesFromContext returns the attributes set with WithAttribute, or nil.
// The returned map must not be modified.
func AttributesFromContext(ctx context.Context) Attributes {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attributesKey{}).(Attributes)
	return attrs
}
