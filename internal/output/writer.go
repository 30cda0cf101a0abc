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

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirseerhq/issue-etl/internal/issue"
)

// Writer streams issues as NDJSON to an io.Writer or a file.
type Writer struct {
	mu      sync.Mutex
	output  io.Writer
	encoder *json.Encoder
	count   int

	// Set for file-backed writers only.
	file   *os.File
	target string
	failed bool
}

// NewWriter creates a writer on w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		output:  w,
		encoder: json.NewEncoder(w),
	}
}

// Create starts an export to path. Output goes to a temporary file in the
// same directory until Close renames it over path.
func Create(path string) (*Writer, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	return &Writer{
		output:  file,
		encoder: json.NewEncoder(file),
		file:    file,
		target:  path,
	}, nil
}

// WriteIssue writes one issue as a single JSON line.
func (w *Writer) WriteIssue(is issue.Issue) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(is); err != nil {
		w.failed = true
		return fmt.Errorf("failed to write issue: %w", err)
	}
	w.count++
	return nil
}

// Export writes every issue in order.
func (w *Writer) Export(issues []issue.Issue) error {
	for _, is := range issues {
		if err := w.WriteIssue(is); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of issues written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the final export location, or "" for stream writers.
func (w *Writer) Path() string { return w.target }

// Abort discards a file export. Later calls to Close are no-ops.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return
	}
	_ = w.file.Close()
	_ = os.Remove(w.file.Name())
	w.file = nil
}

// Close publishes a file export by renaming it into place. If a write
// failed, the temporary file is removed instead.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to close export file: %w", err)
	}
	if w.failed {
		_ = os.Remove(f.Name())
		return nil
	}
	if err := os.Rename(f.Name(), w.target); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to publish export file: %w", err)
	}
	return nil
}
