// Package handlers holds the built-in mocks for the orchestrator web UI and
// the resolver helpers they are made of.
package handlers

import (
	"net/http"

	"github.com/drblury/mockflow/internal/runtime/mock"
)

const (
	// BaseURL is the origin the web UI talks to in development.
	BaseURL = "http://localhost:1234"

	// CookieToggleName selects between the two canned branches of the root
	// and jobs dashboard endpoints.
	CookieToggleName = "v"

	// CookieToggleValue is the cookie value that selects the foo branch.
	CookieToggleValue = "a"
)

const (
	NameSampleQuery   = "sampleQuery"
	NameRoot          = "root"
	NameJobsDashboard = "jobsDashboard"
)

// FooBody is returned when the toggle cookie selects the foo branch.
type FooBody struct {
	Foo string `json:"foo"`
}

// BarBody is returned in every other case.
type BarBody struct {
	Bar string `json:"bar"`
}

func toggle() mock.Resolver {
	return CookieToggle(CookieToggleName, CookieToggleValue, FooBody{Foo: "a"}, BarBody{Bar: "b"})
}

// SampleQuery answers GET /sampleQuery on any origin with SampleRecords.
func SampleQuery() mock.Endpoint {
	return mock.Get(NameSampleQuery, "/sampleQuery", JSON(http.StatusOK, SampleRecords()))
}

// Root answers GET on the web UI origin.
func Root() mock.Endpoint {
	return mock.Get(NameRoot, BaseURL+"/", toggle())
}

// JobsDashboard answers GET on the orchestrator jobs listing.
func JobsDashboard() mock.Endpoint {
	return mock.Get(NameJobsDashboard, BaseURL+"/api/v1/orchestrator/jobs", toggle())
}

// Default returns the built-in endpoints in registry order. The result is a
// fresh slice on every call.
func Default() []mock.Endpoint {
	return []mock.Endpoint{
		SampleQuery(),
		Root(),
		JobsDashboard(),
	}
}
