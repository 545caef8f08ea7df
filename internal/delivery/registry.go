// Package delivery routes outbound messages to whichever channel
// adapters were registered at startup.
package delivery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/user/newshound/internal/types"
)

// Handler pushes one rendered HTML message to a conversation on a single
// channel.
type Handler func(ctx context.Context, chat types.ChatID, html string) error

// Registry fans outbound messages across the registered channels. It
// satisfies the workflow's Sender interface, which lets channel adapters
// register after the workflow exists; the workflow and the adapters
// reference each other otherwise.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a named channel (e.g. "telegram"). Registering the same
// name again replaces the previous handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Channels returns the registered channel names in sorted order.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Send delivers to every registered channel in name order. Every channel
// is attempted even when an earlier one fails; the first failure is
// returned.
func (r *Registry) Send(ctx context.Context, chat types.ChatID, html string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.handlers) == 0 {
		return fmt.Errorf("no delivery channels registered")
	}

	var firstErr error
	for _, name := range r.sortedNames() {
		if err := r.handlers[name](ctx, chat, html); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deliver via %s: %w", name, err)
		}
	}
	return firstErr
}

// sortedNames must be called with the lock held.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
