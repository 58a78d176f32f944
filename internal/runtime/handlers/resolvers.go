package handlers

import (
	"net/http"

	"github.com/drblury/mockflow/internal/runtime/mock"
)

// JSON returns a resolver that ignores the request and always answers with
// status and body.
func JSON[T any](status int, body T) mock.Resolver {
	return func(*mock.Request) mock.Response {
		return mock.JSON(status, body)
	}
}

// CookieToggle returns a resolver answering 200 with match when the request
// carries cookie with value want, and 200 with otherwise in every other case,
// including when the cookie is absent.
func CookieToggle(cookie, want string, match, otherwise any) mock.Resolver {
	return func(req *mock.Request) mock.Response {
		if v, ok := req.Cookie(cookie); ok && v == want {
			return mock.JSON(http.StatusOK, match)
		}
		return mock.JSON(http.StatusOK, otherwise)
	}
}

// PassthroughResolver lets matching requests reach the real network.
func PassthroughResolver() mock.Resolver {
	return func(*mock.Request) mock.Response {
		return mock.Passthrough()
	}
}
