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

import "context"

// Client defines the interface for fetching issues from GitHub.
// This interface allows for easy mocking in tests.
type Client interface {
	// FetchIssues retrieves one page of issues from the specified repository.
	// A non-200 answer yields *errors.FetchError and a network failure
	// *errors.TransportError.
	FetchIssues(ctx context.Context, owner, repo string, opts FetchOptions) (*IssuePage, error)
}

// IssueCounter reports how many issues a repository holds. It is only used
// to display progress for paginated runs.
type IssueCounter interface {
	CountIssues(ctx context.Context, owner, repo string) (int, error)
}
