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

package pipeline

// Stage is the state of a run.
type Stage int

// A run moves Idle → Extracting → Transforming → Loading → Done. Any stage
// failure moves it to Failed, which is terminal.
const (
	Idle Stage = iota
	Extracting
	Transforming
	Loading
	Done
	Failed
)

var stageNames = map[Stage]string{
	Idle:         "idle",
	Extracting:   "extracting",
	Transforming: "transforming",
	Loading:      "loading",
	Done:         "done",
	Failed:       "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Step is the short stage name used for spans, metric labels and run
// metadata.
func (s Stage) Step() string {
	switch s {
	case Extracting:
		return "extract"
	case Transforming:
		return "transform"
	case Loading:
		return "load"
	default:
		return s.String()
	}
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == Done || s == Failed
}
