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

package github

import (
	"encoding/json"
	"math"
)

// RawIssue is one element of the issue-list response, decoded without a
// schema. Accessors walk nested objects by key and return an absent value
// instead of failing when a key is missing, null or of an unexpected type.
type RawIssue map[string]any

// Get returns the value at path, e.g. Get("user", "login").
// The second result is false when any step of the path is missing or null.
func (r RawIssue) Get(path ...string) (any, bool) {
	if len(path) == 0 || r == nil {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or nil.
func (r RawIssue) String(path ...string) *string {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Int64 returns the integral number at path, or nil. Both float64 and
// json.Number representations are accepted; fractional values are rejected.
func (r RawIssue) Int64(path ...string) *int64 {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = i
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
			return nil
		}
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	default:
		return nil
	}
	return &n
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case RawIssue:
		return o, true
	}
	return nil, false
}

// IssuePage is one page of the issue-list endpoint.
type IssuePage struct {
	Issues []RawIssue

	// NextURL is the rel="next" target of the Link header, empty on the last page.
	NextURL string
}

// HasNextPage reports whether the API advertised another page.
func (p *IssuePage) HasNextPage() bool {
	return p.NextURL != ""
}

// FetchOptions configures how issues are fetched.
type FetchOptions struct {
	// PageSize sets the per_page query parameter. Zero leaves it to the API
	// default (30). Maximum is 100 per GitHub's API limits.
	PageSize int

	// PageURL fetches a specific page, typically IssuePage.NextURL of the
	// previous response. Empty fetches the first page.
	PageURL string
}

// MaxPageSize is GitHub's upper bound for per_page.
const MaxPageSize = 100
