// Package mdc holds the mapped diagnostic context of a single request: a flat set of string
// entries that every log line written while serving the request carries implicitly.
//
// A Context is created by the request populator when the request enters the pipeline, travels in
// the request's context.Context and is cleared exactly once when the populator returns. A cleared
// Context is terminal and ignores further writes.
package mdc

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rainbow-me/logcontext/common/logger"
)

// PrincipalKey is the reserved key under which the authenticated principal id is stored.
const PrincipalKey = "principal"

// Context is the diagnostic context of one request.
// It is safe for concurrent use by the goroutines serving that request.
type Context struct {
	mu      sync.RWMutex
	entries map[string]string
	cleared bool
}

// New returns an empty, writable Context.
func New() *Context {
	return &Context{entries: make(map[string]string)}
}

// IsBlank reports whether v is empty or made only of whitespace.
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// Put stores value under key and reports whether it was written.
// - Empty keys and blank values are skipped.
// - An existing key is overwritten.
// - Writes after Clear are ignored.
func (c *Context) Put(key, value string) bool {
	if c == nil || key == "" || IsBlank(value) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleared {
		return false
	}
	c.entries[key] = value
	return true
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	return v, ok
}

// Remove deletes key.
func (c *Context) Remove(key string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear drops every entry and makes the context terminal. Calling it again is a no-op.
func (c *Context) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.cleared = true
}

// Cleared reports whether Clear has run.
func (c *Context) Cleared() bool {
	if c == nil {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cleared
}

// Len returns the number of entries.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Keys returns the keys in lexical order.
func (c *Context) Keys() []string {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(c.entries))
}

// ToMap returns a copy of the entries.
func (c *Context) ToMap() map[string]string {
	if c == nil {
		return map[string]string{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.entries)
}

// Fields converts the entries to log fields, ordered by key.
func (c *Context) Fields() []logger.Field {
	data := c.ToMap()
	if len(data) == 0 {
		return nil
	}

	fields := make([]logger.Field, 0, len(data))
	for _, key := range slices.Sorted(maps.Keys(data)) {
		fields = append(fields, logger.String(key, data[key]))
	}
	return fields
}

// String returns the entries as a JSON object.
func (c *Context) String() string {
	data := c.ToMap()
	if len(data) == 0 {
		return "{}"
	}
	j, _ := json.Marshal(data)
	return string(j)
}

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context carried by ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok && c != nil
}

// Put writes into the Context carried by ctx. It reports false when ctx carries none.
func Put(ctx context.Context, key, value string) bool {
	c, _ := FromContext(ctx)
	return c.Put(key, value)
}

// Get reads from the Context carried by ctx. Returns empty string if the key doesn't exist.
func Get(ctx context.Context, key string) string {
	c, _ := FromContext(ctx)
	v, _ := c.Get(key)
	return v
}

// ToLogFields converts the Context carried by ctx to log fields.
func ToLogFields(ctx context.Context) []logger.Field {
	c, _ := FromContext(ctx)
	return c.Fields()
}

// Logger returns the context logger enriched with the current entries of the Context carried by
// ctx. Entries written after the call are not reflected, call it again to pick them up.
func Logger(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).With(ToLogFields(ctx)...)
}
