package crawler

// Registry is the static mapping from a site key to its adapter. Iteration
// order is the registration order, which the rotation scheduler relies on.
type Registry struct {
	keys  []string
	byKey map[string]Crawler
}

// NewRegistry builds a registry over the given adapters. A later adapter with
// a duplicate key replaces the earlier one.
func NewRegistry(crawlers ...Crawler) *Registry {
	r := &Registry{byKey: make(map[string]Crawler, len(crawlers))}
	for _, c := range crawlers {
		if _, exists := r.byKey[c.SiteKey()]; !exists {
			r.keys = append(r.keys, c.SiteKey())
		}
		r.byKey[c.SiteKey()] = c
	}
	return r
}

// Get looks up the adapter for a site key.
func (r *Registry) Get(siteKey string) (Crawler, bool) {
	c, ok := r.byKey[siteKey]
	return c, ok
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Crawler {
	crawlers := make([]Crawler, 0, len(r.keys))
	for _, key := range r.keys {
		crawlers = append(crawlers, r.byKey[key])
	}
	return crawlers
}

// Keys returns every registered site key in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.keys)
}
