package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the descriptor a Resolver inspects. It is built from an
// intercepted client request or from a request received by the mock server.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	// Cookies maps cookie names to values parsed from the Cookie header. The
	// first occurrence of a name wins.
	Cookies map[string]string
	// Params holds the path parameters captured by the matched pattern.
	Params map[string]string
	Body   []byte

	ctx context.Context
}

// NewRequest builds a Request from r. The body is read in full and r.Body is
// replaced with a fresh reader over the same bytes so r can still be
// forwarded. Server requests, whose URL carries no origin, get one from the
// Host header.
func NewRequest(r *http.Request) (*Request, error) {
	if r == nil {
		return nil, fmt.Errorf("mockflow: nil request")
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		body = data
		r.Body = io.NopCloser(bytes.NewReader(data))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	u := cloneURL(r.URL)
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" && u.Host != "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	return &Request{
		Method:  method,
		URL:     u,
		Header:  r.Header.Clone(),
		Cookies: parseCookies(r),
		Params:  map[string]string{},
		Body:    body,
		ctx:     r.Context(),
	}, nil
}

// Cookie returns the value of the named cookie.
func (r *Request) Cookie(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Cookies[name]
	return v, ok
}

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	clone := *r
	clone.ctx = ctx
	return &clone
}

func parseCookies(r *http.Request) map[string]string {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, seen := cookies[c.Name]; !seen {
			cookies[c.Name] = c.Value
		}
	}
	return cookies
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	clone := *u
	if u.User != nil {
		user := *u.User
		clone.User = &user
	}
	return &clone
}
