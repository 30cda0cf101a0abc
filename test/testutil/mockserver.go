// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package testutil provides common test helpers for issue-etl
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// DefaultPageSize mirrors the page size GitHub applies when per_page is absent.
const DefaultPageSize = 30

// MockServer is a local stand-in for the GitHub REST and GraphQL endpoints.
type MockServer struct {
	*httptest.Server

	requests atomic.Int32

	mu       sync.Mutex
	auth     []string
	pageURLs []string
}

// RequestCount returns the number of requests served so far.
func (m *MockServer) RequestCount() int {
	return int(m.requests.Load())
}

// Authorizations returns the Authorization header of every request, in order.
func (m *MockServer) Authorizations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.auth...)
}

// PageRequests returns the request URIs of every issue-list request.
func (m *MockServer) PageRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pageURLs...)
}

// APIEndpoint is the value for GITHUB_API_ENDPOINT.
func (m *MockServer) APIEndpoint() string { return m.URL }

// GraphQLEndpoint is the value for GITHUB_GRAPHQL_ENDPOINT.
func (m *MockServer) GraphQLEndpoint() string { return m.URL + "/graphql" }

func (m *MockServer) record(r *http.Request) {
	m.requests.Add(1)
	m.mu.Lock()
	m.auth = append(m.auth, r.Header.Get("Authorization"))
	if strings.HasSuffix(r.URL.Path, "/issues") {
		m.pageURLs = append(m.pageURLs, r.URL.RequestURI())
	}
	m.mu.Unlock()
}

// NewMockServer wraps handler in a MockServer that records every request.
func NewMockServer(t *testing.T, handler http.HandlerFunc) *MockServer {
	t.Helper()
	m := &MockServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// NewIssueServer serves issues for owner/repo the way the GitHub REST API
// does: per_page and page query parameters select a slice and a Link header
// points at the next page. POST /graphql answers the issue count query.
func NewIssueServer(t *testing.T, owner, repo string, issues []map[string]interface{}) *MockServer {
	t.Helper()
	issuesPath := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)

	return NewMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/graphql":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"repository": map[string]interface{}{
						"issues": map[string]interface{}{"totalCount": len(issues)},
					},
				},
			})
		case r.Method == http.MethodGet && r.URL.Path == issuesPath:
			servePage(w, r, issues)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
		}
	})
}

func servePage(w http.ResponseWriter, r *http.Request, issues []map[string]interface{}) {
	perPage := DefaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	start := (page - 1) * perPage
	if start > len(issues) {
		start = len(issues)
	}
	end := start + perPage
	if end > len(issues) {
		end = len(issues)
	}

	if end < len(issues) {
		next := fmt.Sprintf("http://%s%s?per_page=%d&page=%d", r.Host, r.URL.Path, perPage, page+1)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
	}
	body := issues[start:end]
	if body == nil {
		body = []map[string]interface{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// NewErrorServer creates a mock server that always answers with statusCode
// and a GitHub-style JSON message.
func NewErrorServer(t *testing.T, statusCode int, message string) *MockServer {
	t.Helper()
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return NewMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
	})
}

// NewRateLimitServer answers every request with GitHub's primary rate
// limit response.
func NewRateLimitServer(t *testing.T) *MockServer {
	t.Helper()
	reset := time.Now().Add(time.Hour).Unix()
	return NewMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded for 127.0.0.1."}`))
	})
}

// NewMalformedServer answers with a 200 whose body is not a JSON array.
func NewMalformedServer(t *testing.T, body string) *MockServer {
	t.Helper()
	return NewMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

// ClosedServerURL returns the URL of a server that is no longer listening.
func ClosedServerURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

// GenerateIssues builds issues with ids start..end inclusive. Every third
// issue is closed and every fifth has no author.
func GenerateIssues(start, end int) []map[string]interface{} {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := make([]map[string]interface{}, 0, end-start+1)
	for i := start; i <= end; i++ {
		b := NewIssueBuilder(int64(i)).
			WithTitle(fmt.Sprintf("Issue %d", i)).
			WithCreatedAt(base.Add(time.Duration(i) * time.Hour)).
			WithUpdatedAt(base.Add(time.Duration(i)*time.Hour + time.Minute))
		if i%3 == 0 {
			b = b.WithClosedAt(base.Add(time.Duration(i)*time.Hour + 2*time.Minute))
		}
		if i%5 == 0 {
			b = b.WithoutUser()
		}
		issues = append(issues, b.Build())
	}
	return issues
}

// WriteIssues encodes issues as a JSON array response body.
func WriteIssues(t *testing.T, w http.ResponseWriter, issues []map[string]interface{}) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(issues); err != nil {
		t.Errorf("failed to encode issues: %v", err)
	}
}
