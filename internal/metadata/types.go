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

package metadata

import (
	"time"
)

// RunMetadata is the audit record of one pipeline run.
type RunMetadata struct {
	ToolVersion string     `json:"tool_version"`
	RunID       string     `json:"run_id"`
	Parameters  RunParams  `json:"parameters"`
	Results     RunResults `json:"results"`
	PreviousRun *RunRef    `json:"previous_run,omitempty"`
}

// RunParams captures the inputs of a run.
type RunParams struct {
	Owner          string `json:"owner"`
	Repository     string `json:"repository"`
	FetchAll       bool   `json:"fetch_all"`
	PageSize       int    `json:"page_size"`
	Database       string `json:"database"`
	ConflictPolicy string `json:"conflict_policy"`
	Authenticated  bool   `json:"authenticated"`
}

// FullName returns "owner/repository".
func (p RunParams) FullName() string {
	return p.Owner + "/" + p.Repository
}

// RunResults holds the outcome and statistics of a run. Issue ranges are
// zero when no issue carried the field.
type RunResults struct {
	Status        string    `json:"status"`
	FailedStage   string    `json:"failed_stage,omitempty"`
	Error         string    `json:"error,omitempty"`
	IssuesFetched int       `json:"issues_fetched"`
	IssuesLoaded  int       `json:"issues_loaded"`
	OpenIssues    int       `json:"open_issues"`
	ClosedIssues  int       `json:"closed_issues"`
	FirstIssueID  int64     `json:"first_issue_id"`
	LastIssueID   int64     `json:"last_issue_id"`
	OldestCreated string    `json:"oldest_created_at,omitempty"`
	NewestCreated string    `json:"newest_created_at,omitempty"`
	Duration      string    `json:"duration"`
	APICallCount  int       `json:"api_calls_made"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}

// RunRef points at an earlier run of the same repository.
type RunRef struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)
