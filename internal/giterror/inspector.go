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

package giterror

import (
	"errors"
	"strings"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
)

// Inspector classifies errors returned by the pipeline stages.
type Inspector interface {
	// IsAuthError returns true if the error represents an authentication or authorization failure.
	IsAuthError(err error) bool

	// IsNotFoundError returns true if the error represents a missing repository.
	IsNotFoundError(err error) bool

	// IsRateLimitError returns true if the error represents a rate limit error.
	IsRateLimitError(err error) bool

	// IsNetworkError returns true if the error represents a network connectivity error.
	IsNetworkError(err error) bool

	// IsConstraintError returns true if the database rejected a row on a constraint.
	IsConstraintError(err error) bool
}

// MessageInspector implements Inspector by looking at error messages only.
type MessageInspector struct{}

// NewMessageInspector creates a MessageInspector.
func NewMessageInspector() Inspector {
	return &MessageInspector{}
}

// NewInspector returns the default inspector: sentinel chain first, message second.
func NewInspector() Inspector {
	return NewErrorChainInspector(NewMessageInspector())
}

// IsAuthError checks if the error is an authentication or authorization error.
func (i *MessageInspector) IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	if i.IsRateLimitError(err) {
		return false
	}
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "authentication")
}

// IsNotFoundError checks if the error is a not found error.
func (i *MessageInspector) IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "could not resolve to a repository")
}

// IsRateLimitError checks if the error is a rate limit error.
func (i *MessageInspector) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *MessageInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable")
}

// IsConstraintError checks for SQLite constraint failures by message.
func (i *MessageInspector) IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "constraint failed") ||
		strings.Contains(errStr, "sqlite_constraint")
}

// ErrorChainInspector wraps a base inspector and checks the error chain for
// the sentinel errors before falling back to the base inspector.
type ErrorChainInspector struct {
	base Inspector
}

// NewErrorChainInspector creates a new ErrorChainInspector.
func NewErrorChainInspector(base Inspector) Inspector {
	return &ErrorChainInspector{base: base}
}

// IsAuthError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsAuthError(err error) bool {
	if errors.Is(err, etlerrors.ErrInvalidToken) {
		return true
	}
	if e.hasTypedError(err) {
		return false
	}
	return e.base.IsAuthError(err)
}

// IsNotFoundError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsNotFoundError(err error) bool {
	if errors.Is(err, etlerrors.ErrRepoNotFound) {
		return true
	}
	if e.hasTypedError(err) {
		return false
	}
	return e.base.IsNotFoundError(err)
}

// IsRateLimitError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsRateLimitError(err error) bool {
	if errors.Is(err, etlerrors.ErrRateLimit) {
		return true
	}
	if e.hasTypedError(err) {
		return false
	}
	return e.base.IsRateLimitError(err)
}

// IsNetworkError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsNetworkError(err error) bool {
	if errors.Is(err, etlerrors.ErrNetworkFailure) {
		return true
	}
	if e.hasTypedError(err) {
		return false
	}
	return e.base.IsNetworkError(err)
}

// IsConstraintError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsConstraintError(err error) bool {
	if errors.Is(err, etlerrors.ErrConstraintViolation) {
		return true
	}
	var pe *etlerrors.PersistError
	if errors.As(err, &pe) {
		return e.base.IsConstraintError(pe.Err)
	}
	return e.base.IsConstraintError(err)
}

// hasTypedError reports whether the chain already carries a typed stage
// error, whose own Is method is authoritative. Message matching would
// otherwise misread a response body such as "not found" in a 500 page.
func (e *ErrorChainInspector) hasTypedError(err error) bool {
	var fe *etlerrors.FetchError
	var te *etlerrors.TransportError
	var pe *etlerrors.PersistError
	return errors.As(err, &fe) || errors.As(err, &te) || errors.As(err, &pe)
}
