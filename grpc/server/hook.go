package server

import (
	"context"
	"time"
)

// ShutdownHook runs once every listener has stopped, e.g. to close the ticket registry client.
type ShutdownHook struct {
	Name     string
	Priority int           // lower runs first
	Timeout  time.Duration // DefaultHookTimeout when zero
	Hook     func(context.Context) error
}

// ShutdownHooks sorts by Priority.
type ShutdownHooks []ShutdownHook

func (h ShutdownHooks) Len() int           { return len(h) }
func (h ShutdownHooks) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h ShutdownHooks) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
