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

package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sirseerhq/issue-etl/internal/github"
)

// FetchResult is the output of the extract stage.
type FetchResult struct {
	Issues []github.RawIssue
	Pages  int
}

// Fetcher performs the extract stage for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*FetchResult, error)
}

// ClientFactory builds an API client authenticated with token. An empty
// token means anonymous access.
type ClientFactory func(token string) github.Client

// CounterFactory builds an issue counter authenticated with token.
type CounterFactory func(token string) github.IssueCounter

// FetchSettings controls how much of the issue list is retrieved.
type FetchSettings struct {
	// All follows pagination links until the list is exhausted. Without it
	// only the first page is fetched.
	All bool
	// PageSize is sent as per_page when positive.
	PageSize int
	// MaxPages bounds an All fetch; zero means unlimited.
	MaxPages int
}

// GitHubFetcher extracts issues with a github.Client.
type GitHubFetcher struct {
	newClient  ClientFactory
	newCounter CounterFactory
	settings   FetchSettings
	logger     *zap.Logger
}

// FetcherOption configures a GitHubFetcher.
type FetcherOption func(*GitHubFetcher)

// WithCounter enables the expected-total lookup for All fetches made with
// a token.
func WithCounter(f CounterFactory) FetcherOption {
	return func(g *GitHubFetcher) { g.newCounter = f }
}

// WithFetchLogger sets the logger for per-page diagnostics.
func WithFetchLogger(logger *zap.Logger) FetcherOption {
	return func(g *GitHubFetcher) { g.logger = logger }
}

// NewGitHubFetcher creates a fetcher that builds its client per request.
func NewGitHubFetcher(newClient ClientFactory, settings FetchSettings, opts ...FetcherOption) *GitHubFetcher {
	g := &GitHubFetcher{
		newClient: newClient,
		settings:  settings,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch implements Fetcher.
func (g *GitHubFetcher) Fetch(ctx context.Context, req Request) (*FetchResult, error) {
	client := g.newClient(req.Token)
	opts := github.FetchOptions{PageSize: g.settings.PageSize}

	if !g.settings.All {
		page, err := client.FetchIssues(ctx, req.Owner, req.Repo, opts)
		if err != nil {
			return nil, err
		}
		if page.HasNextPage() {
			g.logger.Debug("more issues available; only the first page was fetched",
				zap.String("next", page.NextURL))
		}
		return &FetchResult{Issues: page.Issues, Pages: 1}, nil
	}

	g.logExpectedTotal(ctx, req)

	var pages int
	issues, err := github.FetchAll(ctx, client, req.Owner, req.Repo, opts, g.settings.MaxPages, func(pageNum, fetched int) {
		pages = pageNum
		g.logger.Debug("fetched page", zap.Int("page", pageNum), zap.Int("issues", fetched))
	})
	if err != nil {
		return nil, err
	}
	return &FetchResult{Issues: issues, Pages: pages}, nil
}

// logExpectedTotal reports the open issue count. The GraphQL API rejects
// anonymous requests, so it is skipped without a token; failures are
// logged and otherwise ignored.
func (g *GitHubFetcher) logExpectedTotal(ctx context.Context, req Request) {
	if g.newCounter == nil || req.Token == "" {
		return
	}
	total, err := g.newCounter(req.Token).CountIssues(ctx, req.Owner, req.Repo)
	if err != nil {
		g.logger.Warn("could not count open issues", zap.Error(err))
		return
	}
	g.logger.Info("fetching all issues",
		zap.String("repository", fmt.Sprintf("%s/%s", req.Owner, req.Repo)),
		zap.Int("open_issues", total))
}
