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
	"context"
	"fmt"
	"strings"
)

// PageObserver is notified after each page FetchAll retrieves.
type PageObserver func(pageNum, fetchedSoFar int)

// FetchAll retrieves every page of the issue list by following rel="next"
// links, starting with the page described by opts. Issues are returned in
// API order. maxPages <= 0 means no limit.
func FetchAll(ctx context.Context, client Client, owner, repo string, opts FetchOptions, maxPages int, observe PageObserver) ([]RawIssue, error) {
	var (
		all     []RawIssue
		pageNum = 0
		seen    = make(map[string]struct{})
	)

	for {
		pageNum++
		page, err := client.FetchIssues(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}

		all = append(all, page.Issues...)
		if observe != nil {
			observe(pageNum, len(all))
		}

		if !page.HasNextPage() {
			return all, nil
		}
		if maxPages > 0 && pageNum >= maxPages {
			return all, nil
		}
		if _, dup := seen[page.NextURL]; dup {
			return nil, fmt.Errorf("pagination loop detected at %s", page.NextURL)
		}
		seen[page.NextURL] = struct{}{}
		opts.PageURL = page.NextURL
	}
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header:
//
//	<https://api.github.com/repositories/1/issues?page=2>; rel="next", <...>; rel="last"
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if !strings.HasPrefix(param, "rel=") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimPrefix(param, "rel="), `"`)) {
				if rel == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
