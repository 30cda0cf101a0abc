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

// Package github provides a client for the GitHub REST issue-list endpoint
// and the small GraphQL query used to size paginated runs.
//
// The package includes:
//   - A Client interface for fetching a page of issues
//   - A REST implementation with token authentication
//   - FetchAll, which follows Link headers across pages
//   - A GraphQL counter built on the shurcooL/graphql library
//   - Mock client for testing
//   - RawIssue, a loosely-typed issue record with safe field accessors
//
// Basic usage:
//
//	client := github.NewRESTClient(github.RESTConfig{Token: token})
//	page, err := client.FetchIssues(ctx, "octocat", "Hello-World", github.FetchOptions{})
//	if err != nil {
//	    // Handle error
//	}
//	for _, issue := range page.Issues {
//	    title := issue.String("title")
//	}
package github
