package mock

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
)

func okResolver(body any) Resolver {
	return func(*Request) Response { return JSON(http.StatusOK, body) }
}

func TestNewEndpointValidation(t *testing.T) {
	_, err := NewEndpoint("", http.MethodGet, "/x", nil)
	assert.ErrorIs(t, err, errspkg.ErrResolverRequired)

	_, err = NewEndpoint("", " ", "/x", okResolver(nil))
	assert.ErrorIs(t, err, errspkg.ErrMethodRequired)

	_, err = NewEndpoint("", http.MethodGet, "", okResolver(nil))
	assert.ErrorIs(t, err, errspkg.ErrPatternRequired)

	e, err := NewEndpoint("", "get", "/x", okResolver(nil))
	require.NoError(t, err)
	assert.Equal(t, "GET", e.Method)
	assert.Equal(t, "GET /x", e.Name)

	all := MustEndpoint("any", "all", "/x", okResolver(nil))
	assert.Equal(t, MethodAll, all.Method)
	assert.True(t, all.MatchesMethod(http.MethodDelete))
	assert.False(t, e.MatchesMethod(http.MethodPost))

	assert.Panics(t, func() { Get("bad", "nope", okResolver(nil)) })
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := Get("first", "/dup", okResolver("first"))
	second := Get("second", "/dup", okResolver("second"))
	post := Post("post", "/dup", okResolver("post"))
	reg := NewRegistry(first, second, post)

	e, _, ok := reg.Match(http.MethodGet, mustURL(t, "http://h/dup"))
	require.True(t, ok)
	assert.Equal(t, "first", e.Name)

	e, _, ok = reg.Match(http.MethodPost, mustURL(t, "http://h/dup"))
	require.True(t, ok)
	assert.Equal(t, "post", e.Name)

	_, _, ok = reg.Match(http.MethodPut, mustURL(t, "http://h/dup"))
	assert.False(t, ok)

	override := Get("override", "/dup", okResolver("override"))
	prepended := reg.Prepend(override)
	e, _, ok = prepended.Match(http.MethodGet, mustURL(t, "http://h/dup"))
	require.True(t, ok)
	assert.Equal(t, "override", e.Name)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, 4, prepended.Len())
}

func TestRegistryHandlersIsACopy(t *testing.T) {
	reg := NewRegistry(Get("a", "/a", okResolver(nil)), Get("b", "/b", okResolver(nil)))

	listed := reg.Handlers()
	listed[0] = Get("mutated", "/m", okResolver(nil))

	again := reg.Handlers()
	require.Len(t, again, 2)
	assert.Equal(t, "a", again[0].Name)
	assert.Equal(t, "b", again[1].Name)

	var nilReg *Registry
	assert.Nil(t, nilReg.Handlers())
	assert.Equal(t, 0, nilReg.Len())
}

func TestRegistryAnchor(t *testing.T) {
	reg := NewRegistry(Get("rel", "/rel", okResolver(nil))).Anchor(mustURL(t, "http://localhost:1234"))

	_, _, ok := reg.Match(http.MethodGet, mustURL(t, "http://localhost:1234/rel"))
	assert.True(t, ok)
	_, _, ok = reg.Match(http.MethodGet, mustURL(t, "http://elsewhere/rel"))
	assert.False(t, ok)
}

func TestNewRequestFromServerRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/submit?x=1", strings.NewReader("payload"))
	r.Host = "localhost:1234"
	r.AddCookie(&http.Cookie{Name: "v", Value: "a"})
	r.AddCookie(&http.Cookie{Name: "v", Value: "ignored"})

	req, err := NewRequest(r)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http", req.URL.Scheme)
	assert.Equal(t, "localhost:1234", req.URL.Host)
	assert.Equal(t, []byte("payload"), req.Body)

	v, ok := req.Cookie("v")
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = req.Cookie("missing")
	assert.False(t, ok)

	rest, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(rest))
	assert.NotNil(t, req.Context())
}

func TestResponseEncode(t *testing.T) {
	data, ct, err := JSON(http.StatusCreated, map[string]string{"b": "2", "a": "1"}).Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2"}`, string(data))
	assert.Equal(t, "application/json", ct)

	data, ct, err = Response{Body: "hi"}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, "text/plain; charset=utf-8", ct)

	data, ct, err = Response{}.Encode()
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, ct)

	custom := Response{Body: []byte("<x/>"), Header: http.Header{"Content-Type": {"application/xml"}}}
	_, ct, err = custom.Encode()
	require.NoError(t, err)
	assert.Equal(t, "application/xml", ct)

	_, _, err = JSON(http.StatusOK, make(chan int)).Encode()
	assert.Error(t, err)
}

func TestResponseWriteAndHTTPResponse(t *testing.T) {
	resp := JSON(0, map[string]string{"foo": "a"})
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.False(t, resp.IsPassthrough())
	assert.True(t, Passthrough().IsPassthrough())

	rec := httptest.NewRecorder()
	require.NoError(t, resp.Write(rec))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"foo":"a"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "http://localhost:1234/", nil)
	httpResp, err := resp.HTTPResponse(req)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"a"}`, string(body))
	assert.Equal(t, "200 OK", httpResp.Status)
	assert.Equal(t, int64(len(body)), httpResp.ContentLength)
	assert.Same(t, req, httpResp.Request)
}
