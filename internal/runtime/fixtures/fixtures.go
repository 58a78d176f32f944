// Package fixtures compiles YAML fixture files into mock endpoints.
//
// A fixture file lists static endpoints:
//
//	endpoints:
//	  - name: jobs
//	    method: GET
//	    url: http://localhost:1234/api/v1/orchestrator/jobs
//	    body: {bar: b}
//	    when:
//	      - cookies: {v: a}
//	        body: {foo: a}
//
// Rules under "when" are checked in order and the first one whose cookies and
// headers all match supplies the response. Otherwise the endpoint-level
// status and body apply.
package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
	"github.com/drblury/mockflow/internal/runtime/mock"
)

// File is a decoded fixture document.
type File struct {
	Source    string     `yaml:"-"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

// Endpoint describes one canned endpoint.
type Endpoint struct {
	Name        string            `yaml:"name"`
	Method      string            `yaml:"method"`
	URL         string            `yaml:"url"`
	Status      int               `yaml:"status"`
	Headers     map[string]string `yaml:"headers"`
	Body        any               `yaml:"body"`
	Passthrough bool              `yaml:"passthrough"`
	When        []Rule            `yaml:"when"`
}

// Rule overrides the response when the request carries the listed cookies
// and headers.
type Rule struct {
	Cookies map[string]string `yaml:"cookies"`
	Headers map[string]string `yaml:"headers"`
	Status  int               `yaml:"status"`
	Body    any               `yaml:"body"`
}

// Load decodes a fixture document. Unknown fields are rejected.
func Load(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("%w: %v", errspkg.ErrInvalidFixture, err)
	}
	return f, nil
}

// LoadFile reads and decodes the fixture document at path.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := Load(bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	f.Source = path
	return f, nil
}

// LoadFiles loads every path and returns their endpoints in order, the
// endpoints of earlier files first.
func LoadFiles(base *url.URL, paths ...string) ([]mock.Endpoint, error) {
	var endpoints []mock.Endpoint
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		compiled, err := f.Compile(base)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, compiled...)
	}
	return endpoints, nil
}

// Compile compiles the document. Relative URLs are anchored to base when it
// is non-nil.
func (f File) Compile(base *url.URL) ([]mock.Endpoint, error) {
	out := make([]mock.Endpoint, 0, len(f.Endpoints))
	for i, def := range f.Endpoints {
		e, err := def.compile(base)
		if err != nil {
			return nil, fmt.Errorf("%w: endpoint %d%s: %v", errspkg.ErrInvalidFixture, i, f.sourceSuffix(), err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (f File) sourceSuffix() string {
	if f.Source == "" {
		return ""
	}
	return " in " + f.Source
}

func (e Endpoint) compile(base *url.URL) (mock.Endpoint, error) {
	if e.URL == "" {
		return mock.Endpoint{}, errors.New("url is required")
	}
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}

	var resolver mock.Resolver
	if e.Passthrough {
		resolver = func(*mock.Request) mock.Response { return mock.Passthrough() }
	} else {
		resolver = e.resolver()
	}

	endpoint, err := mock.NewEndpoint(e.Name, method, e.URL, resolver)
	if err != nil {
		return mock.Endpoint{}, err
	}
	endpoint.Pattern = endpoint.Pattern.Resolve(base)
	if e.Name == "" {
		endpoint.Name = endpoint.Method + " " + endpoint.Pattern.String()
	}
	return endpoint, nil
}

func (e Endpoint) resolver() mock.Resolver {
	header := make(http.Header, len(e.Headers))
	for k, v := range e.Headers {
		header.Set(k, v)
	}
	fallback := mock.Response{Status: e.Status, Header: header, Body: normalize(e.Body)}

	rules := append([]Rule(nil), e.When...)
	bodies := make([]any, len(rules))
	for i, rule := range rules {
		bodies[i] = normalize(rule.Body)
	}

	return func(req *mock.Request) mock.Response {
		for i, rule := range rules {
			if !rule.matches(req) {
				continue
			}
			resp := fallback
			if rule.Status != 0 {
				resp.Status = rule.Status
			}
			if rule.Body != nil {
				resp.Body = bodies[i]
			}
			return resp
		}
		return fallback
	}
}

func (r Rule) matches(req *mock.Request) bool {
	for name, want := range r.Cookies {
		if got, ok := req.Cookie(name); !ok || got != want {
			return false
		}
	}
	for name, want := range r.Headers {
		if req.Header.Get(name) != want {
			return false
		}
	}
	return true
}

// normalize converts YAML-decoded values into shapes the JSON codec accepts.
// A string body stays a string so it is written verbatim.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
