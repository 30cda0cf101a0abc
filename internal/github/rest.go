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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
)

// DefaultAPIEndpoint is the public GitHub REST API.
const DefaultAPIEndpoint = "https://api.github.com"

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	// APIEndpoint is the REST root, e.g. https://github.example.com/api/v3.
	// Defaults to DefaultAPIEndpoint.
	APIEndpoint string

	// Token is sent as "Authorization: token <Token>" when non-empty.
	Token string

	// Transport is the underlying round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// RESTClient implements Client against the REST issue-list endpoint.
// It performs exactly one GET per call: no retry, no timeout beyond the
// caller's context.
type RESTClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewRESTClient creates a REST client for the configured endpoint.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	endpoint := strings.TrimRight(cfg.APIEndpoint, "/")
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}

	return &RESTClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: &authTransport{
				token: cfg.Token,
				base:  cfg.Transport,
			},
		},
	}
}

// IssuesURL builds the first-page URL of the issue list for owner/repo.
func (c *RESTClient) IssuesURL(owner, repo string, pageSize int) string {
	u := fmt.Sprintf("%s/repos/%s/%s/issues", c.endpoint, url.PathEscape(owner), url.PathEscape(repo))
	if pageSize > 0 {
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}
		u += "?per_page=" + strconv.Itoa(pageSize)
	}
	return u
}

// FetchIssues performs a single GET of the issue list and decodes the JSON
// array in the body. Numbers are decoded as json.Number so large ids keep
// their precision.
func (c *RESTClient) FetchIssues(ctx context.Context, owner, repo string, opts FetchOptions) (*IssuePage, error) {
	reqURL := opts.PageURL
	if reqURL == "" {
		reqURL = c.IssuesURL(owner, repo, opts.PageSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}
		return nil, &etlerrors.TransportError{Method: http.MethodGet, URL: reqURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &etlerrors.TransportError{Method: http.MethodGet, URL: reqURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &etlerrors.FetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var issues []RawIssue
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&issues); err != nil {
		return nil, fmt.Errorf("failed to decode issue list from %s: %w", reqURL, err)
	}

	return &IssuePage{
		Issues:  issues,
		NextURL: nextLink(resp.Header.Get("Link")),
	}, nil
}
