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

// Package pipeline runs the issue ETL: extract the issue list from GitHub,
// project each issue onto the stored columns, and load the batch into the
// database. Stages run strictly in order; the first failure stops the run
// and is returned to the caller unchanged.
//
// Example usage:
//
//	p := pipeline.New(
//	    pipeline.NewGitHubFetcher(newClient, pipeline.FetchSettings{}),
//	    store.NewLoader("github_data.db", store.ConflictFail),
//	)
//	res, err := p.Run(ctx, pipeline.Request{Owner: "octocat", Repo: "Hello-World"})
//	if err != nil {
//	    log.Printf("failed while %s: %v", res.FailedStage, err)
//	}
package pipeline
