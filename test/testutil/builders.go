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
package testutil

import (
	"fmt"
	"time"
)

// IssueBuilder helps construct issue objects shaped like the GitHub REST
// issue-list response.
type IssueBuilder struct {
	id        int64
	title     string
	state     string
	body      string
	user      *string
	createdAt time.Time
	updatedAt *time.Time
	closedAt  *time.Time
	labels    []string
	omit      map[string]bool
}

// NewIssueBuilder creates a builder for an open issue with sensible defaults.
func NewIssueBuilder(id int64) *IssueBuilder {
	login := "octocat"
	return &IssueBuilder{
		id:        id,
		title:     fmt.Sprintf("Test issue %d", id),
		state:     "open",
		body:      "Issue body",
		user:      &login,
		createdAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		omit:      map[string]bool{},
	}
}

// WithTitle sets the issue title.
func (b *IssueBuilder) WithTitle(title string) *IssueBuilder {
	b.title = title
	return b
}

// WithState sets the issue state.
func (b *IssueBuilder) WithState(state string) *IssueBuilder {
	b.state = state
	return b
}

// WithUser sets the author's login.
func (b *IssueBuilder) WithUser(login string) *IssueBuilder {
	b.user = &login
	return b
}

// WithoutUser makes the user field null, as for a deleted account.
func (b *IssueBuilder) WithoutUser() *IssueBuilder {
	b.user = nil
	return b
}

// WithCreatedAt sets created_at.
func (b *IssueBuilder) WithCreatedAt(t time.Time) *IssueBuilder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets updated_at.
func (b *IssueBuilder) WithUpdatedAt(t time.Time) *IssueBuilder {
	b.updatedAt = &t
	return b
}

// WithClosedAt closes the issue at t.
func (b *IssueBuilder) WithClosedAt(t time.Time) *IssueBuilder {
	b.closedAt = &t
	b.state = "closed"
	return b
}

// WithLabels attaches labels. They are not stored but make the payload
// resemble the real API.
func (b *IssueBuilder) WithLabels(labels ...string) *IssueBuilder {
	b.labels = labels
	return b
}

// Without drops a top-level field from the payload entirely.
func (b *IssueBuilder) Without(field string) *IssueBuilder {
	b.omit[field] = true
	return b
}

// Build returns the issue as a JSON-ready map.
func (b *IssueBuilder) Build() map[string]interface{} {
	issue := map[string]interface{}{
		"id":         b.id,
		"number":     b.id,
		"node_id":    fmt.Sprintf("I_kwDO%08d", b.id),
		"title":      b.title,
		"state":      b.state,
		"body":       b.body,
		"comments":   0,
		"created_at": b.createdAt.Format(time.RFC3339),
		"updated_at": nil,
		"closed_at":  nil,
		"user":       nil,
	}
	if b.updatedAt != nil {
		issue["updated_at"] = b.updatedAt.Format(time.RFC3339)
	}
	if b.closedAt != nil {
		issue["closed_at"] = b.closedAt.Format(time.RFC3339)
	}
	if b.user != nil {
		issue["user"] = map[string]interface{}{
			"login": *b.user,
			"type":  "User",
		}
	}

	labels := make([]map[string]interface{}, len(b.labels))
	for i, l := range b.labels {
		labels[i] = map[string]interface{}{"name": l}
	}
	issue["labels"] = labels

	for field := range b.omit {
		delete(issue, field)
	}
	return issue
}
