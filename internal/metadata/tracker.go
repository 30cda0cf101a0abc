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

// Package metadata records an audit trail of pipeline runs. Each run gets
// a random run ID and a JSON file with its parameters, outcome, issue
// statistics and API usage. The newest earlier record for the same
// repository is linked from the next run.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/issue-etl/internal/issue"
)

const filePrefix = "run-metadata-"

// Tracker collects statistics during a run. Create one at the start of
// each run; its methods are safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	runID        string
	startTime    time.Time
	apiCallCount int
	fetched      int
	loaded       int
	summary      issue.Summary
}

// New creates a tracker with a fresh run ID, started now.
func New() *Tracker {
	return &Tracker{
		runID:     uuid.NewString(),
		startTime: time.Now(),
	}
}

// RunID returns the identifier of the tracked run.
func (t *Tracker) RunID() string { return t.runID }

// IncrementAPICall records one issue list request.
func (t *Tracker) IncrementAPICall() {
	t.mu.Lock()
	t.apiCallCount++
	t.mu.Unlock()
}

// RecordFetched records the number of raw issues received.
func (t *Tracker) RecordFetched(n int) {
	t.mu.Lock()
	t.fetched = n
	t.mu.Unlock()
}

// RecordIssues records statistics over the projected issues.
func (t *Tracker) RecordIssues(issues []issue.Issue) {
	s := issue.Summarize(issues)
	t.mu.Lock()
	t.summary = s
	t.mu.Unlock()
}

// RecordLoaded records the number of rows written.
func (t *Tracker) RecordLoaded(n int) {
	t.mu.Lock()
	t.loaded = n
	t.mu.Unlock()
}

// Generate builds the run record. A non-nil runErr marks the run failed in
// failedStage.
func (t *Tracker) Generate(toolVersion string, params RunParams, runErr error, failedStage string, previous *RunRef) *RunMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := time.Now()

	results := RunResults{
		Status:        StatusSucceeded,
		IssuesFetched: t.fetched,
		IssuesLoaded:  t.loaded,
		OpenIssues:    t.summary.Open,
		ClosedIssues:  t.summary.Closed,
		FirstIssueID:  t.summary.MinID,
		LastIssueID:   t.summary.MaxID,
		OldestCreated: t.summary.EarliestAt,
		NewestCreated: t.summary.LatestAt,
		Duration:      completedAt.Sub(t.startTime).String(),
		APICallCount:  t.apiCallCount,
		StartedAt:     t.startTime,
		CompletedAt:   completedAt,
	}
	if runErr != nil {
		results.Status = StatusFailed
		results.FailedStage = failedStage
		results.Error = runErr.Error()
	}

	return &RunMetadata{
		ToolVersion: toolVersion,
		RunID:       t.runID,
		Parameters:  params,
		Results:     results,
		PreviousRun: previous,
	}
}

// Ref returns a reference to this record for linking from a later run.
func (m *RunMetadata) Ref() *RunRef {
	return &RunRef{RunID: m.RunID, Status: m.Results.Status, CompletedAt: m.Results.CompletedAt}
}

// SaveMetadata writes metadata to dir as
// run-metadata-{unix start}-{run id prefix}.json, via a temporary file and
// rename.
func SaveMetadata(metadata *RunMetadata, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	short := metadata.RunID
	if len(short) > 8 {
		short = short[:8]
	}
	path := filepath.Join(dir, fmt.Sprintf("%s%d-%s.json", filePrefix, metadata.Results.StartedAt.Unix(), short))

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := WriteMetadataToWriter(metadata, file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to save metadata file: %w", err)
	}
	return path, nil
}

// LoadLatestMetadata returns the record with the newest start time for
// repo ("owner/name") in dir, or nil when there is none. Unreadable files
// are skipped.
func LoadLatestMetadata(dir, repo string) (*RunMetadata, error) {
	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *RunMetadata
	for _, file := range files {
		m, err := readMetadata(file)
		if err != nil {
			continue
		}
		if !strings.EqualFold(m.Parameters.FullName(), repo) {
			continue
		}
		if latest == nil || m.Results.StartedAt.After(latest.Results.StartedAt) {
			latest = m
		}
	}
	return latest, nil
}

func readMetadata(path string) (*RunMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m RunMetadata
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &m, nil
}

// WriteMetadataToWriter writes metadata as indented JSON.
func WriteMetadataToWriter(metadata *RunMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}
