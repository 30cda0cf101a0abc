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
	"fmt"
	"net/http"

	"github.com/shurcooL/graphql"
	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
	"github.com/sirseerhq/issue-etl/internal/giterror"
)

// DefaultGraphQLEndpoint is the public GitHub GraphQL API.
const DefaultGraphQLEndpoint = "https://api.github.com/graphql"

// GraphQLCounter implements IssueCounter with a minimal GraphQL query.
// The REST issue list defaults to open issues, so only OPEN ones are counted.
// GitHub's GraphQL API rejects anonymous requests; callers only use the
// counter when a token is configured.
type GraphQLCounter struct {
	client    *graphql.Client
	inspector giterror.Inspector
}

// NewGraphQLCounter creates a counter for the given token and endpoint.
func NewGraphQLCounter(token, endpoint string) *GraphQLCounter {
	if endpoint == "" {
		endpoint = DefaultGraphQLEndpoint
	}

	httpClient := &http.Client{
		Transport: &authTransport{
			token: token,
			base:  http.DefaultTransport,
		},
	}

	return &GraphQLCounter{
		client:    graphql.NewClient(endpoint, httpClient),
		inspector: giterror.NewInspector(),
	}
}

// CountIssues returns the number of open issues in owner/repo.
func (c *GraphQLCounter) CountIssues(ctx context.Context, owner, repo string) (int, error) {
	var query struct {
		Repository struct {
			Issues struct {
				TotalCount graphql.Int
			} `graphql:"issues(states: OPEN)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]interface{}{
		"owner": graphql.String(owner),
		"repo":  graphql.String(repo),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return 0, c.mapError(err, owner, repo)
	}

	return int(query.Repository.Issues.TotalCount), nil
}

// mapError maps GraphQL errors to our domain errors
func (c *GraphQLCounter) mapError(err error, owner, repo string) error {
	if c.inspector.IsRateLimitError(err) {
		return fmt.Errorf("GitHub API rate limit exceeded: %w", etlerrors.ErrRateLimit)
	}

	if c.inspector.IsAuthError(err) {
		return fmt.Errorf("GitHub API authentication failed: %w", etlerrors.ErrInvalidToken)
	}

	if c.inspector.IsNotFoundError(err) {
		return fmt.Errorf("repository '%s/%s' not found: %w", owner, repo, etlerrors.ErrRepoNotFound)
	}

	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error connecting to GitHub API: %w", etlerrors.ErrNetworkFailure)
	}

	return fmt.Errorf("failed to count issues: %w", err)
}
