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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/sirseerhq/issue-etl/internal/issue"
	"github.com/sirseerhq/issue-etl/internal/logging"
	"github.com/sirseerhq/issue-etl/internal/metadata"
	"github.com/sirseerhq/issue-etl/internal/metrics"
	"github.com/sirseerhq/issue-etl/internal/output"
)

// Progress notices printed during a run.
const (
	MsgStart     = "Starting ETL pipeline..."
	MsgExtract   = "Extracting data from GitHub..."
	MsgTransform = "Transforming data..."
	MsgLoad      = "Loading data into the database..."
	MsgDone      = "ETL pipeline completed successfully!"
)

// Loader performs the load stage and returns the number of rows written.
type Loader interface {
	Load(ctx context.Context, issues []issue.Issue) (int, error)
}

// Request names the repository to extract and the optional token.
type Request struct {
	Owner string
	Repo  string
	Token string
}

// Result describes a finished run. It is returned even when Run fails.
type Result struct {
	Stage       Stage
	FailedStage Stage
	Pages       int
	Fetched     int
	Loaded      int
	Issues      []issue.Issue
	Duration    time.Duration
}

// Pipeline wires a Fetcher and a Loader together.
type Pipeline struct {
	fetcher  Fetcher
	loader   Loader
	progress io.Writer
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  *metrics.Recorder
	tracker  *metadata.Tracker
	exporter output.Exporter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress sets where progress notices go. The default is stdout.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tracer }
}

// WithMetrics records counts and stage durations on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithTracker records run statistics on t.
func WithTracker(t *metadata.Tracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

// WithExporter hands the projected issues to e before loading. The caller
// owns e and must close it.
func WithExporter(e output.Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// New creates a pipeline.
func New(fetcher Fetcher, loader Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  fetcher,
		loader:   loader,
		progress: os.Stdout,
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("issue-etl"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes extract, transform and load in order. On failure the
// returned Result has Stage == Failed and FailedStage set, and the error is
// the failing stage's error as is.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{Stage: Idle}

	ctx, span := p.tracer.Start(ctx, "etl.run", trace.WithAttributes(
		attribute.String("github.owner", req.Owner),
		attribute.String("github.repo", req.Repo),
	))
	defer span.End()

	log := logging.WithTrace(ctx, p.logger).With(zap.String("repository", req.Owner+"/"+req.Repo))

	p.notify(MsgStart)

	var fetched *FetchResult
	p.notify(MsgExtract)
	err := p.stage(ctx, res, Extracting, func(ctx context.Context) error {
		var err error
		fetched, err = p.fetcher.Fetch(ctx, req)
		if err != nil {
			return err
		}
		res.Pages = fetched.Pages
		res.Fetched = len(fetched.Issues)
		p.recordFetch(fetched)
		return nil
	})
	if err != nil {
		return p.fail(span, log, res, start, err)
	}

	p.notify(MsgTransform)
	err = p.stage(ctx, res, Transforming, func(ctx context.Context) error {
		res.Issues = issue.Project(fetched.Issues)
		if p.tracker != nil {
			p.tracker.RecordIssues(res.Issues)
		}
		if p.exporter != nil {
			return p.exporter.Export(res.Issues)
		}
		return nil
	})
	if err != nil {
		return p.fail(span, log, res, start, err)
	}

	p.notify(MsgLoad)
	err = p.stage(ctx, res, Loading, func(ctx context.Context) error {
		n, err := p.loader.Load(ctx, res.Issues)
		if err != nil {
			return err
		}
		res.Loaded = n
		if p.tracker != nil {
			p.tracker.RecordLoaded(n)
		}
		if p.metrics != nil {
			p.metrics.IssuesLoaded.Add(float64(n))
		}
		return nil
	})
	if err != nil {
		return p.fail(span, log, res, start, err)
	}

	res.Stage = Done
	res.Duration = time.Since(start)
	if p.metrics != nil {
		p.metrics.RunSucceeded(time.Now(), res.Duration)
	}
	span.SetAttributes(attribute.Int("etl.issues_loaded", res.Loaded))
	log.Info("run completed",
		zap.Int("fetched", res.Fetched),
		zap.Int("loaded", res.Loaded),
		zap.Int("pages", res.Pages),
		zap.Duration("duration", res.Duration))

	p.notify(MsgDone)
	return res, nil
}

// stage moves res into s and runs fn inside a child span, timing it.
func (p *Pipeline) stage(ctx context.Context, res *Result, s Stage, fn func(context.Context) error) error {
	res.Stage = s

	ctx, span := p.tracer.Start(ctx, "etl."+s.Step())
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)

	if p.metrics != nil {
		p.metrics.ObserveStage(s.Step(), elapsed)
	}
	logging.WithTrace(ctx, p.logger).Debug("stage finished",
		zap.String("stage", s.Step()),
		zap.Duration("elapsed", elapsed),
		zap.Bool("ok", err == nil))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) fail(span trace.Span, log *zap.Logger, res *Result, start time.Time, err error) (*Result, error) {
	res.FailedStage = res.Stage
	res.Stage = Failed
	res.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.RunFailed(res.FailedStage.Step())
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "failed while "+res.FailedStage.String())
	log.Error("run failed", zap.String("stage", res.FailedStage.Step()), zap.Error(err))
	return res, err
}

func (p *Pipeline) recordFetch(f *FetchResult) {
	if p.tracker != nil {
		for i := 0; i < f.Pages; i++ {
			p.tracker.IncrementAPICall()
		}
		p.tracker.RecordFetched(len(f.Issues))
	}
	if p.metrics != nil {
		p.metrics.APIRequests.Add(float64(f.Pages))
		p.metrics.IssuesFetched.Add(float64(len(f.Issues)))
	}
}

func (p *Pipeline) notify(msg string) {
	fmt.Fprintln(p.progress, msg)
}
