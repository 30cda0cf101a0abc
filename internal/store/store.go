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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
	"github.com/sirseerhq/issue-etl/internal/giterror"
	"github.com/sirseerhq/issue-etl/internal/issue"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "github_data.db"

const createTableSQL = `CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY,
	title TEXT,
	state TEXT,
	created_at TEXT,
	updated_at TEXT,
	closed_at TEXT,
	user TEXT
)`

const insertColumns = `INTO issues (id, title, state, created_at, updated_at, closed_at, user) VALUES (?, ?, ?, ?, ?, ?, ?)`

// ConflictPolicy decides what happens when an inserted id already exists.
type ConflictPolicy string

const (
	// ConflictFail aborts the batch with a constraint error.
	ConflictFail ConflictPolicy = "fail"
	// ConflictIgnore keeps the stored row and skips the new one.
	ConflictIgnore ConflictPolicy = "ignore"
	// ConflictReplace overwrites the stored row.
	ConflictReplace ConflictPolicy = "replace"
)

// ParseConflictPolicy parses a policy name. The empty string means ConflictFail.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictFail, nil
	case ConflictFail, ConflictIgnore, ConflictReplace:
		return p, nil
	default:
		return "", fmt.Errorf("invalid conflict policy %q: must be fail, ignore or replace", s)
	}
}

func (p ConflictPolicy) insertSQL() string {
	switch p {
	case ConflictIgnore:
		return "INSERT OR IGNORE " + insertColumns
	case ConflictReplace:
		return "INSERT OR REPLACE " + insertColumns
	default:
		return "INSERT " + insertColumns
	}
}

// Store is an open SQLite database holding the issues table.
type Store struct {
	db        *sql.DB
	path      string
	inspector giterror.Inspector
}

// Open opens (creating if needed) the SQLite file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &etlerrors.PersistError{Op: "open database " + path, Err: err}
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &etlerrors.PersistError{Op: "open database " + path, Err: err}
	}

	return &Store{db: db, path: path, inspector: giterror.NewMessageInspector()}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// EnsureTable creates the issues table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return s.persistError("create issues table", err)
	}
	return nil
}

// Append inserts issues in one transaction and returns the number of rows
// written. Under ConflictIgnore skipped duplicates are not counted.
func (s *Store) Append(ctx context.Context, issues []issue.Issue, policy ConflictPolicy) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.persistError("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, policy.insertSQL())
	if err != nil {
		return 0, s.persistError("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, is := range issues {
		res, err := stmt.ExecContext(ctx, nullable(is.ID), nullable(is.Title), nullable(is.State),
			nullable(is.CreatedAt), nullable(is.UpdatedAt), nullable(is.ClosedAt), nullable(is.User))
		if err != nil {
			return 0, s.persistError(fmt.Sprintf("insert issue %d of %d", i+1, len(issues)), err)
		}
		if affected, aerr := res.RowsAffected(); aerr == nil && affected > 0 {
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, s.persistError("commit transaction", err)
	}
	committed = true
	return n, nil
}

// Issues returns every stored issue ordered by id.
func (s *Store) Issues(ctx context.Context) ([]issue.Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, state, created_at, updated_at, closed_at, user FROM issues ORDER BY id`)
	if err != nil {
		return nil, s.persistError("query issues", err)
	}
	defer func() { _ = rows.Close() }()

	var out []issue.Issue
	for rows.Next() {
		var (
			id                                  sql.NullInt64
			title, state, created, updated, cls sql.NullString
			user                                sql.NullString
		)
		if err := rows.Scan(&id, &title, &state, &created, &updated, &cls, &user); err != nil {
			return nil, s.persistError("scan issue", err)
		}
		is := issue.Issue{
			Title:     nullString(title),
			State:     nullString(state),
			CreatedAt: nullString(created),
			UpdatedAt: nullString(updated),
			ClosedAt:  nullString(cls),
			User:      nullString(user),
		}
		if id.Valid {
			v := id.Int64
			is.ID = &v
		}
		out = append(out, is)
	}
	if err := rows.Err(); err != nil {
		return nil, s.persistError("read issues", err)
	}
	return out, nil
}

// Count returns the number of stored issues.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, s.persistError("count issues", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return s.persistError("close database", err)
	}
	return nil
}

func (s *Store) persistError(op string, err error) error {
	return &etlerrors.PersistError{Op: op, Err: err, Constraint: s.isConstraint(err)}
}

func (s *Store) isConstraint(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return s.inspector.IsConstraintError(err)
}

// nullable turns an absent field into SQL NULL.
func nullable[T int64 | string](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
