package mock

import "net/url"

// Registry is an immutable ordered list of endpoints. When several endpoints
// match a request the earliest one wins.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry copies endpoints into a new Registry.
func NewRegistry(endpoints ...Endpoint) *Registry {
	return &Registry{endpoints: append([]Endpoint(nil), endpoints...)}
}

// Handlers returns the endpoints in registry order. The slice is a copy;
// repeated calls return equal results.
func (r *Registry) Handlers() []Endpoint {
	if r == nil {
		return nil
	}
	return append([]Endpoint(nil), r.endpoints...)
}

// Len returns the number of endpoints.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.endpoints)
}

// Prepend returns a new Registry with endpoints placed ahead of the existing
// ones, so they take priority.
func (r *Registry) Prepend(endpoints ...Endpoint) *Registry {
	merged := make([]Endpoint, 0, len(endpoints)+r.Len())
	merged = append(merged, endpoints...)
	merged = append(merged, r.Handlers()...)
	return &Registry{endpoints: merged}
}

// Anchor returns a new Registry whose relative patterns are resolved against
// base.
func (r *Registry) Anchor(base *url.URL) *Registry {
	anchored := r.Handlers()
	for i := range anchored {
		anchored[i].Pattern = anchored[i].Pattern.Resolve(base)
	}
	return &Registry{endpoints: anchored}
}

// Match returns the first endpoint handling method and u, together with the
// path parameters its pattern captured.
func (r *Registry) Match(method string, u *url.URL) (Endpoint, map[string]string, bool) {
	if r == nil {
		return Endpoint{}, nil, false
	}
	for _, e := range r.endpoints {
		if !e.MatchesMethod(method) {
			continue
		}
		if params, ok := e.Pattern.Match(u); ok {
			return e, params, true
		}
	}
	return Endpoint{}, nil, false
}
