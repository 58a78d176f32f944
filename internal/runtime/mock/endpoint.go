package mock

import (
	"net/http"
	"strings"

	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
)

// MethodAll registers an endpoint for every HTTP method.
const MethodAll = "*"

// Resolver maps a mock request to a mock response. Resolvers must not keep
// state between calls; they may run concurrently.
type Resolver func(req *Request) Response

// Endpoint binds a Resolver to an HTTP method and a URL pattern.
type Endpoint struct {
	Name     string
	Method   string
	Pattern  Pattern
	Resolver Resolver
}

// NewEndpoint validates and builds an Endpoint. An empty name defaults to
// "METHOD pattern"; "ALL" is accepted as an alias of MethodAll.
func NewEndpoint(name, method, pattern string, resolver Resolver) (Endpoint, error) {
	if resolver == nil {
		return Endpoint{}, errspkg.ErrResolverRequired
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "":
		return Endpoint{}, errspkg.ErrMethodRequired
	case "ALL":
		method = MethodAll
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return Endpoint{}, err
	}
	if name == "" {
		name = method + " " + p.String()
	}
	return Endpoint{Name: name, Method: method, Pattern: p, Resolver: resolver}, nil
}

// MustEndpoint is like NewEndpoint but panics on error. It suits endpoints
// declared as package-level literals.
func MustEndpoint(name, method, pattern string, resolver Resolver) Endpoint {
	e, err := NewEndpoint(name, method, pattern, resolver)
	if err != nil {
		panic(err)
	}
	return e
}

// Get declares a GET endpoint.
func Get(name, pattern string, resolver Resolver) Endpoint {
	return MustEndpoint(name, http.MethodGet, pattern, resolver)
}

// Post declares a POST endpoint.
func Post(name, pattern string, resolver Resolver) Endpoint {
	return MustEndpoint(name, http.MethodPost, pattern, resolver)
}

// MatchesMethod reports whether the endpoint handles method.
func (e Endpoint) MatchesMethod(method string) bool {
	return e.Method == MethodAll || strings.EqualFold(e.Method, method)
}
