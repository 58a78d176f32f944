package runtime

import (
	"net/http"
)

// interceptor answers matched requests from the registry and hands the rest
// to next.
type interceptor struct {
	s    *Service
	next http.RoundTripper
}

// Transport returns a RoundTripper serving matched requests from the mock
// endpoints. Unhandled and passthrough requests go to next, or to the
// service's default next transport when next is nil. Matched requests never
// reach the network.
//
// The request body is read in full and replaced with an equivalent reader so
// it can still be forwarded.
func (s *Service) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = s.next
	}
	return &interceptor{s: s, next: next}
}

// Client returns an http.Client whose requests are intercepted.
func (s *Service) Client() *http.Client {
	return &http.Client{Transport: s.Transport(nil)}
}

// Listen installs the interceptor as http.DefaultTransport so every client
// using the default transport is intercepted. Close restores the previous
// transport. Calling Listen again while listening does nothing.
func (s *Service) Listen() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.listening {
		return
	}
	s.defaultTransport = http.DefaultTransport
	http.DefaultTransport = s.Transport(s.defaultTransport)
	s.listening = true
	s.Logger.Info("Intercepting http.DefaultTransport", nil)
}

func (t *interceptor) RoundTrip(r *http.Request) (*http.Response, error) {
	i, err := t.s.intercept(r)
	if err != nil {
		return nil, err
	}

	if i.matched && !i.passthrough() {
		resp, err := i.resp.HTTPResponse(r)
		if err != nil {
			t.s.finish(i, 0, err)
			return nil, err
		}
		t.s.finish(i, resp.StatusCode, nil)
		return resp, nil
	}

	if !i.matched {
		if err := t.s.unhandled(i); err != nil {
			t.s.finish(i, 0, err)
			return nil, err
		}
	}

	resp, err := t.next.RoundTrip(r)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.s.finish(i, status, err)
	return resp, err
}
