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

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
	"github.com/sirseerhq/issue-etl/internal/github"
	"github.com/sirseerhq/issue-etl/internal/issue"
	"github.com/sirseerhq/issue-etl/internal/metadata"
	"github.com/sirseerhq/issue-etl/internal/metrics"
	"github.com/sirseerhq/issue-etl/internal/output"
	"github.com/sirseerhq/issue-etl/internal/store"
)

type recordingLoader struct {
	calls  int
	issues []issue.Issue
	err    error
}

func (l *recordingLoader) Load(ctx context.Context, issues []issue.Issue) (int, error) {
	l.calls++
	l.issues = issues
	if l.err != nil {
		return 0, l.err
	}
	return len(issues), nil
}

type failingExporter struct{ err error }

func (f failingExporter) Export([]issue.Issue) error { return f.err }
func (f failingExporter) Close() error               { return nil }

func mockFetcher(mock *github.MockClient, settings FetchSettings) *GitHubFetcher {
	return NewGitHubFetcher(func(string) github.Client { return mock }, settings)
}

func TestRun_Success(t *testing.T) {
	var progress bytes.Buffer
	loader := &recordingLoader{}

	p := New(mockFetcher(github.NewMockClient(), FetchSettings{}), loader, WithProgress(&progress))
	res, err := p.Run(context.Background(), Request{Owner: "octocat", Repo: "Hello-World"})
	require.NoError(t, err)

	assert.Equal(t, Done, res.Stage)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Loaded)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, loader.calls)
	require.Len(t, loader.issues, 3)
	assert.Equal(t, int64(1001), *loader.issues[0].ID)
	assert.Nil(t, loader.issues[2].User)

	assert.Equal(t, strings.Join([]string{MsgStart, MsgExtract, MsgTransform, MsgLoad, MsgDone}, "\n")+"\n", progress.String())
}

func TestRun_FetchFailureSkipsLoader(t *testing.T) {
	tests := []struct {
		name     string
		mock     *github.MockClient
		sentinel error
	}{
		{"auth", github.NewMockClientWithOptions(github.WithAuthFailure()), etlerrors.ErrInvalidToken},
		{"network", github.NewMockClientWithOptions(github.WithNetworkFailure()), etlerrors.ErrNetworkFailure},
		{"not found", &github.MockClient{ShouldFailNotFound: true}, etlerrors.ErrRepoNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var progress bytes.Buffer
			loader := &recordingLoader{}

			res, err := New(mockFetcher(tt.mock, FetchSettings{}), loader, WithProgress(&progress)).
				Run(context.Background(), Request{Owner: "o", Repo: "r"})

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.Equal(t, Failed, res.Stage)
			assert.Equal(t, Extracting, res.FailedStage)
			assert.Zero(t, loader.calls, "loader must not run after a failed fetch")

			lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
			assert.Equal(t, MsgExtract, lines[len(lines)-1])
		})
	}
}

func TestRun_FetchErrorReturnedUnchanged(t *testing.T) {
	fetchErr := &etlerrors.FetchError{StatusCode: 404, Body: `{"message":"Not Found"}`}
	mock := github.NewMockClientWithOptions(github.WithError(fetchErr))

	_, err := New(mockFetcher(mock, FetchSettings{}), &recordingLoader{}, WithProgress(&bytes.Buffer{})).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})

	assert.Same(t, fetchErr, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRun_LoadFailure(t *testing.T) {
	loadErr := &etlerrors.PersistError{Op: "insert issue 1 of 3", Err: errors.New("UNIQUE constraint failed: issues.id"), Constraint: true}
	loader := &recordingLoader{err: loadErr}

	res, err := New(mockFetcher(github.NewMockClient(), FetchSettings{}), loader, WithProgress(&bytes.Buffer{})).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})

	assert.Same(t, loadErr, err)
	assert.Equal(t, Failed, res.Stage)
	assert.Equal(t, Loading, res.FailedStage)
	assert.Equal(t, 3, res.Fetched)
	assert.Zero(t, res.Loaded)
}

func TestRun_ExporterReceivesIssues(t *testing.T) {
	var buf bytes.Buffer
	exporter := output.NewWriter(&buf)

	_, err := New(mockFetcher(github.NewMockClient(), FetchSettings{}), &recordingLoader{},
		WithProgress(&bytes.Buffer{}), WithExporter(exporter)).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.NoError(t, err)

	assert.Equal(t, 3, exporter.Count())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestRun_ExportFailureStopsBeforeLoad(t *testing.T) {
	loader := &recordingLoader{}
	exportErr := errors.New("disk full")

	res, err := New(mockFetcher(github.NewMockClient(), FetchSettings{}), loader,
		WithProgress(&bytes.Buffer{}), WithExporter(failingExporter{err: exportErr})).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})

	assert.Same(t, exportErr, err)
	assert.Equal(t, Transforming, res.FailedStage)
	assert.Zero(t, loader.calls)
}

func TestRun_RecordsMetricsAndMetadata(t *testing.T) {
	recorder := metrics.NewRecorder("o/r")
	tracker := metadata.New()
	mock := github.NewMockClientWithOptions(github.WithPages(
		[]github.RawIssue{{"id": 1}, {"id": 2}},
		[]github.RawIssue{{"id": 3}},
	))

	_, err := New(mockFetcher(mock, FetchSettings{All: true}), &recordingLoader{},
		WithProgress(&bytes.Buffer{}), WithMetrics(recorder), WithTracker(tracker)).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.NoError(t, err)

	assert.Equal(t, 3.0, promtestutil.ToFloat64(recorder.IssuesFetched))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(recorder.IssuesLoaded))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(recorder.APIRequests))
	assert.Equal(t, 3, promtestutil.CollectAndCount(recorder.StageDuration))
	assert.NotZero(t, promtestutil.ToFloat64(recorder.LastSuccess))

	m := tracker.Generate("test", metadata.RunParams{Owner: "o", Repository: "r"}, nil, "", nil)
	assert.Equal(t, 2, m.Results.APICallCount)
	assert.Equal(t, 3, m.Results.IssuesFetched)
	assert.Equal(t, 3, m.Results.IssuesLoaded)
	assert.Equal(t, int64(1), m.Results.FirstIssueID)
	assert.Equal(t, int64(3), m.Results.LastIssueID)
}

func TestRun_FailureMetric(t *testing.T) {
	recorder := metrics.NewRecorder("o/r")

	_, err := New(mockFetcher(github.NewMockClientWithOptions(github.WithNetworkFailure()), FetchSettings{}),
		&recordingLoader{}, WithProgress(&bytes.Buffer{}), WithMetrics(recorder)).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.Error(t, err)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(recorder.FailuresTotal.WithLabelValues("extract")))
	assert.Zero(t, promtestutil.ToFloat64(recorder.LastSuccess))
}

func TestRun_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, err := New(mockFetcher(github.NewMockClient(), FetchSettings{}), &recordingLoader{},
		WithProgress(&bytes.Buffer{}), WithTracer(tp.Tracer("test"))).
		Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.NoError(t, err)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"etl.extract", "etl.transform", "etl.load", "etl.run"}, names)
}

func TestRun_WithSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_data.db")
	loader := store.NewLoader(path, store.ConflictFail)
	p := New(mockFetcher(github.NewMockClient(), FetchSettings{}), loader, WithProgress(&bytes.Buffer{}))

	res, err := p.Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Loaded)

	// Re-running against unchanged data collides on the primary key.
	res, err = p.Run(context.Background(), Request{Owner: "o", Repo: "r"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, etlerrors.ErrConstraintViolation))
	assert.Equal(t, Loading, res.FailedStage)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "extracting", Extracting.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Stage(42).String())
	assert.Equal(t, "extract", Extracting.Step())
	assert.Equal(t, "load", Loading.Step())
	assert.Equal(t, "done", Done.Step())
	assert.True(t, Done.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Loading.Terminal())
}
