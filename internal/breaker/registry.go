/**
 * @description
 * Process-wide registry of circuit breakers, one per remote service name.
 * Workers share a single breaker per service so a tripped host stays
 * tripped for every caller.
 *
 * @dependencies
 * - standard "sync"
 */

package breaker

import "sync"

// Registry hands out one Breaker per service name.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	opts     []Option
}

// NewRegistry creates a registry whose breakers share the given options.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		opts:     opts,
	}
}

// Get returns the breaker for service, creating it on first use.
func (r *Registry) Get(service string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[service]; ok {
		return b
	}
	b := New(service, r.opts...)
	r.breakers[service] = b
	return b
}

// Snapshots returns observable stats for every registered breaker.
func (r *Registry) Snapshots() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stats, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
