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

// Package errors defines sentinel errors and the typed stage errors of the
// ETL pipeline. Sentinels map to specific exit codes in the CLI for proper
// scripting support; typed errors carry the detail of the failing stage.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidToken indicates GitHub authentication failed.
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrRepoNotFound indicates the specified repository does not exist or is not accessible.
	// Maps to exit code 2.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates GitHub API rate limit has been exceeded.
	// Maps to exit code 2.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrStorage indicates the destination database could not be created or written.
	// Maps to exit code 4.
	ErrStorage = errors.New("storage failure")

	// ErrConstraintViolation indicates a row was rejected by a table constraint,
	// typically a duplicate issue id. Maps to exit code 4.
	ErrConstraintViolation = errors.New("constraint violation")
)

// FetchError is returned when the issue-list endpoint answers with anything
// other than 200 OK.
type FetchError struct {
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch issues: %d, %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Is maps the HTTP status onto the sentinel errors so callers can use errors.Is.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrInvalidToken:
		return e.StatusCode == http.StatusUnauthorized ||
			(e.StatusCode == http.StatusForbidden && !e.isRateLimited())
	case ErrRateLimit:
		return e.StatusCode == http.StatusTooManyRequests ||
			(e.StatusCode == http.StatusForbidden && e.isRateLimited())
	case ErrRepoNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func (e *FetchError) isRateLimited() bool {
	return strings.Contains(strings.ToLower(e.Body), "rate limit")
}

// TransportError wraps a network-level failure of an outbound request.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrNetworkFailure for every transport error.
func (e *TransportError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// PersistError wraps a failure while creating or writing the issues table.
type PersistError struct {
	// Op names the storage step that failed, e.g. "open", "create table", "insert".
	Op  string
	Err error
	// Constraint is set when the database rejected a row on a constraint.
	Constraint bool
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool {
	switch target {
	case ErrStorage:
		return true
	case ErrConstraintViolation:
		return e.Constraint
	}
	return false
}
