package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
	"github.com/drblury/mockflow/internal/runtime/mock"
)

const sampleQueryBody = `[{"userId":1234,"id":1,"date":"1970-01-01T00:00:00.000Z","bool":true},` +
	`{"userId":9876,"id":2,"date":"2023-12-31T00:00:00.000Z","bool":false}]`

func resolve(t *testing.T, method, target string, cookies ...*http.Cookie) (int, string) {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	req, err := mock.NewRequest(r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	endpoint, params, ok := mock.NewRegistry(Default()...).Match(req.Method, req.URL)
	if !ok {
		t.Fatalf("no endpoint matched %s %s", method, target)
	}
	req.Params = params

	resp := endpoint.Resolver(req)
	body, _, err := resp.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return resp.StatusCode(), string(body)
}

func TestDefaultOrder(t *testing.T) {
	want := []string{NameSampleQuery, NameRoot, NameJobsDashboard}
	for round := 0; round < 2; round++ {
		got := Default()
		if len(got) != len(want) {
			t.Fatalf("expected %d endpoints, got %d", len(want), len(got))
		}
		for i, e := range got {
			if e.Name != want[i] {
				t.Fatalf("position %d: expected %s, got %s", i, want[i], e.Name)
			}
			if e.Method != http.MethodGet {
				t.Fatalf("%s: expected GET, got %s", e.Name, e.Method)
			}
		}
	}
}

func TestSampleQueryReturnsRecords(t *testing.T) {
	status, body := resolve(t, http.MethodGet, "http://localhost:1234/sampleQuery")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body != sampleQueryBody {
		t.Fatalf("unexpected body:\n%s", body)
	}
}

func TestSampleQueryIgnoresRequest(t *testing.T) {
	_, plain := resolve(t, http.MethodGet, "http://localhost:1234/sampleQuery")
	_, withCookie := resolve(t, http.MethodGet, "http://example.com/sampleQuery?page=2",
		&http.Cookie{Name: CookieToggleName, Value: "a"})
	if plain != withCookie {
		t.Fatalf("expected identical bodies, got %s and %s", plain, withCookie)
	}
}

func TestCookieToggleBranches(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cookie *http.Cookie
		want   string
	}{
		{"root with v=a", "http://localhost:1234/", &http.Cookie{Name: "v", Value: "a"}, `{"foo":"a"}`},
		{"root with v=z", "http://localhost:1234/", &http.Cookie{Name: "v", Value: "z"}, `{"bar":"b"}`},
		{"root without cookie", "http://localhost:1234/", nil, `{"bar":"b"}`},
		{"jobs without cookie", "http://localhost:1234/api/v1/orchestrator/jobs", nil, `{"bar":"b"}`},
		{"jobs with v=a", "http://localhost:1234/api/v1/orchestrator/jobs", &http.Cookie{Name: "v", Value: "a"}, `{"foo":"a"}`},
		{"jobs with empty v", "http://localhost:1234/api/v1/orchestrator/jobs", &http.Cookie{Name: "v", Value: ""}, `{"bar":"b"}`},
		{"jobs with other cookie", "http://localhost:1234/api/v1/orchestrator/jobs", &http.Cookie{Name: "w", Value: "a"}, `{"bar":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookies []*http.Cookie
			if tt.cookie != nil {
				cookies = append(cookies, tt.cookie)
			}
			status, body := resolve(t, http.MethodGet, tt.target, cookies...)
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d", status)
			}
			if body != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, body)
			}
		})
	}
}

func TestResolversAreIdempotent(t *testing.T) {
	targets := []string{
		"http://localhost:1234/sampleQuery",
		"http://localhost:1234/",
		"http://localhost:1234/api/v1/orchestrator/jobs",
	}
	for _, target := range targets {
		_, first := resolve(t, http.MethodGet, target, &http.Cookie{Name: "v", Value: "a"})
		for i := 0; i < 5; i++ {
			_, again := resolve(t, http.MethodGet, target, &http.Cookie{Name: "v", Value: "a"})
			if !bytes.Equal([]byte(first), []byte(again)) {
				t.Fatalf("%s: body changed between calls: %s vs %s", target, first, again)
			}
		}
	}
}

func TestRootDoesNotShadowOtherPaths(t *testing.T) {
	reg := mock.NewRegistry(Root())
	r := httptest.NewRequest(http.MethodGet, "http://localhost:1234/api/v1/orchestrator/jobs", nil)
	if _, _, ok := reg.Match(r.Method, r.URL); ok {
		t.Fatal("root endpoint must only match the origin root")
	}
}

func TestSampleRecordsFreshSlice(t *testing.T) {
	first := SampleRecords()
	first[0].UserID = 0
	if SampleRecords()[0].UserID != 1234 {
		t.Fatal("SampleRecords must not share state between calls")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Date(2023, time.December, 31)
	data, err := jsoncodec.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2023-12-31T00:00:00.000Z"` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var decoded Timestamp
	if err := jsoncodec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(ts.Time) {
		t.Fatalf("expected %v, got %v", ts, decoded)
	}

	if err := jsoncodec.Unmarshal([]byte(`"yesterday"`), &decoded); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestPassthroughResolver(t *testing.T) {
	if !PassthroughResolver()(&mock.Request{}).IsPassthrough() {
		t.Fatal("expected passthrough response")
	}
}

func TestJSONResolverIgnoresRequest(t *testing.T) {
	resp := JSON(http.StatusAccepted, map[string]int{"n": 1})(nil)
	if resp.StatusCode() != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode())
	}
}
