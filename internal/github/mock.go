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

package github

import (
	"context"
	"encoding/json"
	"fmt"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
)

// MockClient is a mock implementation of the GitHub Client interface for testing.
type MockClient struct {
	// Pages to return, in order. A single page is the common case.
	Pages [][]RawIssue

	// Error to return
	Error error

	// Behavior flags
	ShouldFailAuth     bool
	ShouldFailNetwork  bool
	ShouldFailNotFound bool

	// Track calls for verification
	CallCount int
	LastOwner string
	LastRepo  string
	LastOpts  FetchOptions
}

// NewMockClient creates a new mock client with default test data
func NewMockClient() *MockClient {
	return &MockClient{
		Pages: [][]RawIssue{generateTestIssues()},
	}
}

// FetchIssues implements the Client interface. Page N+1 is addressed by
// the PageURL "mock://page/N" returned with page N.
func (m *MockClient) FetchIssues(ctx context.Context, owner, repo string, opts FetchOptions) (*IssuePage, error) {
	m.CallCount++
	m.LastOwner = owner
	m.LastRepo = repo
	m.LastOpts = opts

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if m.ShouldFailAuth {
		return nil, &etlerrors.FetchError{StatusCode: 401, Body: `{"message":"Bad credentials"}`}
	}

	if m.ShouldFailNetwork {
		return nil, &etlerrors.TransportError{Method: "GET", URL: "mock://issues", Err: fmt.Errorf("dial tcp: connection refused")}
	}

	if m.ShouldFailNotFound || (owner == "nonexistent" && repo == "repo") {
		return nil, &etlerrors.FetchError{StatusCode: 404, Body: `{"message":"Not Found"}`}
	}

	if m.Error != nil {
		return nil, m.Error
	}

	index := 0
	if opts.PageURL != "" {
		if _, err := fmt.Sscanf(opts.PageURL, "mock://page/%d", &index); err != nil {
			return nil, fmt.Errorf("unexpected page url %q", opts.PageURL)
		}
	}

	page := &IssuePage{}
	if index < len(m.Pages) {
		page.Issues = m.Pages[index]
	}
	if index+1 < len(m.Pages) {
		page.NextURL = fmt.Sprintf("mock://page/%d", index+1)
	}
	return page, nil
}

// generateTestIssues creates sample issue data for testing, shaped like the
// REST API's JSON after decoding with UseNumber.
func generateTestIssues() []RawIssue {
	return []RawIssue{
		{
			"id":         json.Number("1001"),
			"title":      "Crash when opening settings",
			"state":      "open",
			"created_at": "2024-01-01T00:00:00Z",
			"updated_at": "2024-01-02T10:00:00Z",
			"closed_at":  nil,
			"user":       map[string]any{"login": "alice"},
		},
		{
			"id":         json.Number("1002"),
			"title":      "Document the config file",
			"state":      "closed",
			"created_at": "2024-01-03T08:30:00Z",
			"updated_at": "2024-01-05T09:00:00Z",
			"closed_at":  "2024-01-05T09:00:00Z",
			"user":       map[string]any{"login": "bob"},
		},
		{
			"id":         json.Number("1003"),
			"title":      "Issue from a deleted account",
			"state":      "open",
			"created_at": "2024-01-04T12:00:00Z",
			"updated_at": "2024-01-04T12:00:00Z",
			"closed_at":  nil,
		},
	}
}

// MockClientOption allows configuring the mock client
type MockClientOption func(*MockClient)

// WithIssues sets a single page of issues to return
func WithIssues(issues []RawIssue) MockClientOption {
	return func(m *MockClient) {
		m.Pages = [][]RawIssue{issues}
	}
}

// WithPages sets several pages to return, linked by next URLs
func WithPages(pages ...[]RawIssue) MockClientOption {
	return func(m *MockClient) {
		m.Pages = pages
	}
}

// WithError makes the client return a specific error
func WithError(err error) MockClientOption {
	return func(m *MockClient) {
		m.Error = err
	}
}

// WithAuthFailure makes the client simulate authentication failure
func WithAuthFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailAuth = true
	}
}

// WithNetworkFailure makes the client simulate a transport failure
func WithNetworkFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailNetwork = true
	}
}

// NewMockClientWithOptions creates a mock client with options
func NewMockClientWithOptions(opts ...MockClientOption) *MockClient {
	mock := NewMockClient()
	for _, opt := range opts {
		opt(mock)
	}
	return mock
}
