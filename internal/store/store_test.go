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
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
	"github.com/sirseerhq/issue-etl/internal/issue"
)

func ptr[T any](v T) *T { return &v }

func sampleIssues() []issue.Issue {
	return []issue.Issue{
		{ID: ptr(int64(1)), Title: ptr("Bug"), State: ptr("open"), CreatedAt: ptr("2024-01-01T00:00:00Z"), User: ptr("alice")},
		{ID: ptr(int64(2)), Title: ptr("Feature"), State: ptr("closed"), ClosedAt: ptr("2024-01-04T00:00:00Z"), User: ptr("bob")},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "issues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureTable(context.Background()))
	return s
}

func TestEnsureTable_Idempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureTable(ctx))
	require.NoError(t, s.EnsureTable(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppend_RoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	n, err := s.Append(ctx, sampleIssues(), ConflictFail)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Issues(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleIssues(), got)
}

func TestAppend_NullFields(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Append(ctx, []issue.Issue{{ID: ptr(int64(9))}}, ConflictFail)
	require.NoError(t, err)

	got, err := s.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), *got[0].ID)
	assert.Nil(t, got[0].Title)
	assert.Nil(t, got[0].User)
	assert.Nil(t, got[0].ClosedAt)
}

func TestAppend_Empty(t *testing.T) {
	s := openTemp(t)

	n, err := s.Append(context.Background(), nil, ConflictFail)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppend_DuplicateFailsAndRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Append(ctx, sampleIssues(), ConflictFail)
	require.NoError(t, err)

	batch := []issue.Issue{
		{ID: ptr(int64(3)), Title: ptr("New")},
		{ID: ptr(int64(1)), Title: ptr("Duplicate")},
	}
	_, err = s.Append(ctx, batch, ConflictFail)
	require.Error(t, err)

	var perr *etlerrors.PersistError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Constraint)
	assert.True(t, errors.Is(err, etlerrors.ErrConstraintViolation))
	assert.True(t, errors.Is(err, etlerrors.ErrStorage))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "failed batch must not leave partial rows")
}

func TestAppend_ConflictPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    ConflictPolicy
		wantN     int
		wantTitle string
	}{
		{"ignore keeps stored row", ConflictIgnore, 1, "Bug"},
		{"replace overwrites stored row", ConflictReplace, 2, "Bug v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTemp(t)
			ctx := context.Background()

			_, err := s.Append(ctx, sampleIssues(), ConflictFail)
			require.NoError(t, err)

			batch := []issue.Issue{
				{ID: ptr(int64(1)), Title: ptr("Bug v2")},
				{ID: ptr(int64(3)), Title: ptr("Third")},
			}
			n, err := s.Append(ctx, batch, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.wantN, n)

			got, err := s.Issues(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, tt.wantTitle, *got[0].Title)
		})
	}
}

func TestParseConflictPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ConflictPolicy
		wantErr bool
	}{
		{"", ConflictFail, false},
		{"fail", ConflictFail, false},
		{"IGNORE", ConflictIgnore, false},
		{" replace ", ConflictReplace, false},
		{"upsert", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConflictPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, etlerrors.ErrStorage))
	assert.False(t, errors.Is(err, etlerrors.ErrConstraintViolation))
}

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_data.db")
	ctx := context.Background()

	loader := NewLoader(path, ConflictFail)
	n, err := loader.Load(ctx, sampleIssues())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, path, loader.Target())

	// A second run of the same data appends and therefore collides.
	_, err = loader.Load(ctx, sampleIssues())
	assert.True(t, errors.Is(err, etlerrors.ErrConstraintViolation))

	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoader_DefaultTarget(t *testing.T) {
	assert.Equal(t, DefaultPath, (&Loader{}).Target())
}
