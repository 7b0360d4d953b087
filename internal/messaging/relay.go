package messaging

import (
	"context"
	"fmt"
	"sync"
)

// Relay is a Notifier whose backend is bound after construction. It breaks
// the construction cycle between the scheduler (which needs a notifier) and
// the transport (which needs the flow engine, which needs the scheduler).
type Relay struct {
	mu      sync.RWMutex
	backend Notifier
}

// NewRelay creates an unbound Relay. Sends fail until Bind is called.
func NewRelay() *Relay {
	return &Relay{}
}

// Bind sets the delivery backend.
func (r *Relay) Bind(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend = n
}

// Send delegates to the bound backend.
func (r *Relay) Send(ctx context.Context, target string, text string) error {
	r.mu.RLock()
	backend := r.backend
	r.mu.RUnlock()
	if backend == nil {
		return fmt.Errorf("no notifier bound")
	}
	return backend.Send(ctx, target, text)
}
