package provider

// Registry holds the constructed providers in a stable order. Adding a
// provider means implementing the interface and listing it here; the
// orchestrator never changes.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry creates a registry from the given providers, preserving
// their order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, exists := r.providers[p.ID()]; exists {
			continue
		}
		r.order = append(r.order, p.ID())
		r.providers[p.ID()] = p
	}
	return r
}

// DefaultRegistry builds the standard provider set
func DefaultRegistry(cfg Config) *Registry {
	return NewRegistry(
		NewGroq(cfg),
		NewOpenAI(cfg),
		NewAnthropic(cfg),
		NewPerplexity(cfg),
	)
}

// Get returns the provider with the given id
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns every registered provider id in registration order
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// All returns every registered provider in registration order
func (r *Registry) All() []Provider {
	providers := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		providers = append(providers, r.providers[id])
	}
	return providers
}
