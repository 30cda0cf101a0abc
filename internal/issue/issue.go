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

// Package issue holds the flat issue record produced by projecting raw
// GitHub API objects onto the seven columns the local store keeps.
package issue

import "github.com/sirseerhq/issue-etl/internal/github"

// Issue is the projected form of one GitHub issue. A nil field means the
// value was absent or null in the API response.
type Issue struct {
	ID        *int64  `json:"id"`
	Title     *string `json:"title"`
	State     *string `json:"state"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
	ClosedAt  *string `json:"closed_at"`
	User      *string `json:"user"`
}

// Project maps raw issues to Issue records one-to-one, preserving order.
// It never fails: missing or mistyped fields become nil.
func Project(raw []github.RawIssue) []Issue {
	issues := make([]Issue, len(raw))
	for i, r := range raw {
		issues[i] = FromRaw(r)
	}
	return issues
}

// FromRaw projects a single raw issue.
func FromRaw(r github.RawIssue) Issue {
	return Issue{
		ID:        r.Int64("id"),
		Title:     r.String("title"),
		State:     r.String("state"),
		CreatedAt: r.String("created_at"),
		UpdatedAt: r.String("updated_at"),
		ClosedAt:  r.String("closed_at"),
		User:      r.String("user", "login"),
	}
}

// Summary aggregates facts about a batch of projected issues.
type Summary struct {
	Count         int
	Open          int
	Closed        int
	MinID         int64
	MaxID         int64
	EarliestAt    string
	LatestAt      string
	MissingUser   int
	DistinctUsers int
}

// Summarize computes a Summary. Issues without an ID are counted but do not
// affect the ID range; CreatedAt values compare lexically, which orders
// RFC 3339 UTC timestamps correctly.
func Summarize(issues []Issue) Summary {
	s := Summary{Count: len(issues)}
	users := make(map[string]struct{})
	for _, is := range issues {
		if is.State != nil {
			switch *is.State {
			case "open":
				s.Open++
			case "closed":
				s.Closed++
			}
		}
		if is.ID != nil {
			if s.MinID == 0 || *is.ID < s.MinID {
				s.MinID = *is.ID
			}
			if *is.ID > s.MaxID {
				s.MaxID = *is.ID
			}
		}
		if is.CreatedAt != nil {
			if s.EarliestAt == "" || *is.CreatedAt < s.EarliestAt {
				s.EarliestAt = *is.CreatedAt
			}
			if *is.CreatedAt > s.LatestAt {
				s.LatestAt = *is.CreatedAt
			}
		}
		if is.User == nil {
			s.MissingUser++
		} else {
			users[*is.User] = struct{}{}
		}
	}
	s.DistinctUsers = len(users)
	return s
}
