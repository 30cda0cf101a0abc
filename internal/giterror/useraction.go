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
	"fmt"
)

// UserActionError decorates an error with a hint telling the user how to
// resolve it. The CLI prints the hint below the error message.
type UserActionError struct {
	Err    error
	Action string
}

func (e *UserActionError) Error() string {
	return e.Err.Error()
}

func (e *UserActionError) Unwrap() error { return e.Err }

// WithUserAction attaches an actionable hint to err. A nil err stays nil.
func WithUserAction(err error, action string) error {
	if err == nil {
		return nil
	}
	return &UserActionError{Err: err, Action: action}
}

// UserAction returns the outermost hint in the chain, or "" if there is none.
func UserAction(err error) string {
	var ua *UserActionError
	if errors.As(err, &ua) {
		return ua.Action
	}
	return ""
}

// Annotate attaches the standard hint for err's class. Errors that match no
// class are returned unchanged.
func Annotate(inspector Inspector, err error, owner, repo string) error {
	switch {
	case err == nil:
		return nil
	case inspector.IsRateLimitError(err):
		return WithUserAction(err, "GitHub API rate limit exceeded. Wait for the limit to reset or provide a token via --token or GITHUB_TOKEN")
	case inspector.IsAuthError(err):
		return WithUserAction(err, "GitHub rejected the credentials. Provide a valid token via --token or GITHUB_TOKEN")
	case inspector.IsNotFoundError(err):
		return WithUserAction(err, fmt.Sprintf("Repository '%s/%s' was not found. Check the name and your access permissions", owner, repo))
	case inspector.IsNetworkError(err):
		return WithUserAction(err, "Network connection failed. Please check your internet connection and try again")
	case inspector.IsConstraintError(err):
		return WithUserAction(err, "Issues from this repository are already stored. Use --on-conflict ignore or replace, or point --db at a new file")
	}
	return err
}
