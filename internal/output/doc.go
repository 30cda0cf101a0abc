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

// Package output exports projected issues as NDJSON (newline delimited
// JSON), one issue object per line, with null for absent fields.
//
// Example usage:
//
//	w, err := output.Create("issues.ndjson")
//	if err != nil {
//	    return err
//	}
//	if err := w.Export(issues); err != nil {
//	    w.Abort()
//	    return err
//	}
//	return w.Close()
//
// Files are written to a temporary sibling and renamed into place on
// Close, so a failed run never leaves a truncated export behind.
package output
