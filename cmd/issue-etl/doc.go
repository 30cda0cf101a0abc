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

// Package main implements the issue-etl command-line interface. It copies
// the issue list of one GitHub repository into a local SQLite database.
//
// The CLI supports:
//   - Fetching the first page of issues (default behavior)
//   - Fetching every page with the --all flag
//   - Choosing the database file and the duplicate-id policy
//   - Exporting the projected issues as NDJSON alongside the load
//   - Recording run metadata, Prometheus metrics and OpenTelemetry traces
//
// Usage:
//
//	issue-etl run [<owner>/<repo>] [flags]
//
// Example:
//
//	export GITHUB_TOKEN=your_token
//	issue-etl run golang/go --all --db go_issues.db
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication, not-found or rate-limit error
//   - 3: Network error
//   - 4: Database error
package main
