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
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirseerhq/issue-etl/internal/issue"
	"github.com/sirseerhq/issue-etl/internal/metadata"
	"github.com/sirseerhq/issue-etl/internal/store"
)

// issueFields are the keys every exported or stored issue carries.
var issueFields = []string{"id", "title", "state", "created_at", "updated_at", "closed_at", "user"}

// AssertNDJSONIssues validates that a file holds one issue object per line
// with exactly the stored fields, and returns the decoded issues.
func AssertNDJSONIssues(t *testing.T, filePath string, expectedCount int) []map[string]interface{} {
	t.Helper()

	file, err := os.Open(filePath)
	if err != nil {
		t.Fatalf("Failed to open output file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var issues []map[string]interface{}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Errorf("Line %d: invalid JSON: %v", len(issues)+1, err)
			continue
		}

		for _, field := range issueFields {
			if _, ok := obj[field]; !ok {
				t.Errorf("Line %d: missing field '%s'", len(issues)+1, field)
			}
		}
		if len(obj) != len(issueFields) {
			t.Errorf("Line %d: expected %d fields, got %d", len(issues)+1, len(issueFields), len(obj))
		}

		issues = append(issues, obj)
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("Error reading file: %v", err)
	}

	if len(issues) != expectedCount {
		t.Errorf("Expected %d issues, got %d", expectedCount, len(issues))
	}
	return issues
}

// StoredIssues returns the rows of the issues table ordered by id.
func StoredIssues(t *testing.T, dbPath string) []issue.Issue {
	t.Helper()

	ctx := context.Background()
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	issues, err := s.Issues(ctx)
	if err != nil {
		t.Fatalf("Failed to read issues: %v", err)
	}
	return issues
}

// AssertIssueRows checks the number of rows in the issues table.
func AssertIssueRows(t *testing.T, dbPath string, expected int) {
	t.Helper()

	AssertFileExists(t, dbPath)
	if got := len(StoredIssues(t, dbPath)); got != expected {
		t.Errorf("Expected %d rows in issues table, got %d", expected, got)
	}
}

// ReadRunMetadata returns every run metadata record in dir, oldest first.
func ReadRunMetadata(t *testing.T, dir string) []*metadata.RunMetadata {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "run-metadata-*.json"))
	if err != nil {
		t.Fatalf("Failed to glob metadata files: %v", err)
	}

	records := make([]*metadata.RunMetadata, 0, len(matches))
	for _, path := range matches {
		var m metadata.RunMetadata
		ReadJSON(t, path, &m)
		records = append(records, &m)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Results.StartedAt.Before(records[j].Results.StartedAt)
	})
	return records
}

// AssertRunMetadata checks that dir holds exactly expectedRuns records and
// that the newest has the given status. It returns the newest record.
func AssertRunMetadata(t *testing.T, dir string, expectedRuns int, status string) *metadata.RunMetadata {
	t.Helper()

	records := ReadRunMetadata(t, dir)
	if len(records) != expectedRuns {
		t.Fatalf("Expected %d metadata files, got %d", expectedRuns, len(records))
	}
	if len(records) == 0 {
		return nil
	}

	latest := records[len(records)-1]
	if latest.Results.Status != status {
		t.Errorf("Expected status %q, got %q (error: %s)", status, latest.Results.Status, latest.Results.Error)
	}
	if latest.RunID == "" {
		t.Error("Missing run_id")
	}
	if latest.ToolVersion == "" {
		t.Error("Missing tool_version")
	}
	return latest
}

// AssertContainsString checks if a string contains a substring
func AssertContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected string to contain %q, got: %s", needle, haystack)
	}
}

// AssertNotContainsString checks if a string does not contain a substring
func AssertNotContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Errorf("Expected string to NOT contain %q, got: %s", needle, haystack)
	}
}

// AssertLastLine checks the final non-empty line of output.
func AssertLastLine(t *testing.T, output, expected string) {
	t.Helper()
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if got := lines[len(lines)-1]; got != expected {
		t.Errorf("Expected last line %q, got %q\nOutput:\n%s", expected, got, output)
	}
}

// AssertEqual compares two values and fails if they're not equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}
}
