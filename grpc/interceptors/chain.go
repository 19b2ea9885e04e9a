package interceptors

import (
	"slices"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
)

// chain is an ordered set of named interceptors. None of the operations are concurrency-safe:
// build the chain once at startup, then Commit it.
type chain[T any] struct {
	order []string
	items map[string]T
}

func newChain[T any]() chain[T] {
	return chain[T]{items: make(map[string]T)}
}

// Exists reports whether an interceptor is registered under id.
func (c *chain[T]) Exists(id string) bool {
	_, ok := c.items[id]
	return ok
}

// IDs returns the interceptor ids in execution order.
func (c *chain[T]) IDs() []string {
	return slices.Clone(c.order)
}

// Push adds a new interceptor onto the end of the chain. It returns false when id is taken.
// Push("b", <inter>)
//
//	Before: a
//	After: a -> b
func (c *chain[T]) Push(id string, inter T) bool {
	if c.Exists(id) {
		return false
	}
	c.items[id] = inter
	c.order = append(c.order, id)
	return true
}

// InsertAfter inserts an interceptor right after afterID.
// InsertAfter("a", "c", <inter>)
//
//	Before: a -> b
//	After: a -> c -> b
func (c *chain[T]) InsertAfter(afterID, id string, inter T) bool {
	return c.insertAt(afterID, id, inter, 1)
}

// InsertBefore inserts an interceptor right before beforeID.
// InsertBefore("a", "c", <inter>)
//
//	Before: a -> b
//	After: c -> a -> b
func (c *chain[T]) InsertBefore(beforeID, id string, inter T) bool {
	return c.insertAt(beforeID, id, inter, 0)
}

func (c *chain[T]) insertAt(anchor, id string, inter T, offset int) bool {
	if c.Exists(id) || !c.Exists(anchor) {
		return false
	}
	index := slices.Index(c.order, anchor) + offset
	c.order = slices.Insert(c.order, index, id)
	c.items[id] = inter
	return true
}

// Delete removes the interceptor registered under id.
// Delete("a")
//
//	Before: a -> b
//	After: b
func (c *chain[T]) Delete(id string) bool {
	if !c.Exists(id) {
		return false
	}
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
	delete(c.items, id)
	return true
}

// Replace swaps the interceptor registered under id, keeping its position.
func (c *chain[T]) Replace(id string, inter T) bool {
	if !c.Exists(id) {
		return false
	}
	c.items[id] = inter
	return true
}

func (c *chain[T]) ordered() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// UnaryServerInterceptorChain builds a grpc.UnaryServerInterceptor.
type UnaryServerInterceptorChain struct {
	chain[grpc.UnaryServerInterceptor]
}

// StreamServerInterceptorChain builds a grpc.StreamServerInterceptor.
type StreamServerInterceptorChain struct {
	chain[grpc.StreamServerInterceptor]
}

// UnaryClientInterceptorChain builds a grpc.UnaryClientInterceptor.
type UnaryClientInterceptorChain struct {
	chain[grpc.UnaryClientInterceptor]
}

func NewUnaryServerInterceptorChain() *UnaryServerInterceptorChain {
	return &UnaryServerInterceptorChain{chain: newChain[grpc.UnaryServerInterceptor]()}
}

func NewStreamServerInterceptorChain() *StreamServerInterceptorChain {
	return &StreamServerInterceptorChain{chain: newChain[grpc.StreamServerInterceptor]()}
}

func NewUnaryClientInterceptorChain() *UnaryClientInterceptorChain {
	return &UnaryClientInterceptorChain{chain: newChain[grpc.UnaryClientInterceptor]()}
}

// Commit chains the interceptors in order; the first one is the outermost.
func (c *UnaryServerInterceptorChain) Commit() grpc.UnaryServerInterceptor {
	return grpcmiddleware.ChainUnaryServer(c.ordered()...)
}

// Commit chains the interceptors in order; the first one is the outermost.
func (c *StreamServerInterceptorChain) Commit() grpc.StreamServerInterceptor {
	return grpcmiddleware.ChainStreamServer(c.ordered()...)
}

// Commit chains the interceptors in order; the first one is the outermost.
func (c *UnaryClientInterceptorChain) Commit() grpc.UnaryClientInterceptor {
	return grpcmiddleware.ChainUnaryClient(c.ordered()...)
}
