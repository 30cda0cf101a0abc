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

package store

import (
	"context"

	"github.com/sirseerhq/issue-etl/internal/issue"
)

// Loader writes a batch of issues to the database at Path, holding the
// connection only for the duration of one Load call.
type Loader struct {
	Path   string
	Policy ConflictPolicy
}

// NewLoader creates a Loader for path with the given policy.
func NewLoader(path string, policy ConflictPolicy) *Loader {
	return &Loader{Path: path, Policy: policy}
}

// Load opens the database, ensures the table, appends issues and closes the
// database on every path. It returns the number of rows written.
func (l *Loader) Load(ctx context.Context, issues []issue.Issue) (n int, err error) {
	s, err := Open(ctx, l.Path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.EnsureTable(ctx); err != nil {
		return 0, err
	}

	n, err = s.Append(ctx, issues, l.Policy)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Target describes where Load writes, for progress and logs.
func (l *Loader) Target() string {
	if l.Path == "" {
		return DefaultPath
	}
	return l.Path
}
