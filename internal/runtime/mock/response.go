package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
)

// Response is what a Resolver hands back to the interception layer.
//
// A zero Status means 200. Body is JSON-encoded unless it is a string or a
// []byte, which are written as-is; a nil Body writes nothing.
type Response struct {
	Status int
	Header http.Header
	Body   any

	passthrough bool
}

// JSON returns a response carrying body as JSON.
func JSON(status int, body any) Response {
	return Response{Status: status, Body: body}
}

// Passthrough returns a response telling the interception layer to perform
// the request against the real network instead.
func Passthrough() Response {
	return Response{passthrough: true}
}

// IsPassthrough reports whether the response was built with Passthrough.
func (r Response) IsPassthrough() bool { return r.passthrough }

// StatusCode returns the effective status code.
func (r Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// Encode renders the body and picks its content type. An explicit
// Content-Type header takes precedence over the inferred one.
func (r Response) Encode() ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	switch body := r.Body.(type) {
	case nil:
	case []byte:
		data = body
		contentType = "application/octet-stream"
	case string:
		data = []byte(body)
		contentType = "text/plain; charset=utf-8"
	default:
		encoded, err := jsoncodec.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode mock response body: %w", err)
		}
		data = encoded
		contentType = "application/json"
	}
	if explicit := r.Header.Get("Content-Type"); explicit != "" {
		contentType = explicit
	}
	return data, contentType, nil
}

// Write sends the response on w.
func (r Response) Write(w http.ResponseWriter) error {
	data, contentType, err := r.Encode()
	if err != nil {
		return err
	}
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(r.StatusCode())
	if len(data) == 0 {
		return nil
	}
	_, err = w.Write(data)
	return err
}

// HTTPResponse converts the response into the *http.Response a RoundTripper
// returns for req.
func (r Response) HTTPResponse(req *http.Request) (*http.Response, error) {
	data, contentType, err := r.Encode()
	if err != nil {
		return nil, err
	}
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(data)))

	status := r.StatusCode()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}
