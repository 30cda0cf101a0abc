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

// Package metrics records per-run Prometheus metrics. A run is a short-lived
// batch job, so metrics are delivered by pushing to a Pushgateway or by
// writing a node_exporter textfile rather than by serving /metrics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJobName is the Pushgateway job label used when none is configured.
const DefaultJobName = "issue_etl"

// Recorder holds the metrics of one run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	IssuesFetched   prometheus.Counter
	IssuesLoaded    prometheus.Counter
	APIRequests     prometheus.Counter
	StageDuration   *prometheus.HistogramVec
	FailuresTotal   *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
	LastRunDuration prometheus.Gauge
}

// NewRecorder creates a Recorder with every metric registered. repo is
// attached to each series as a constant label.
func NewRecorder(repo string) *Recorder {
	labels := prometheus.Labels{"repository": repo}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		IssuesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "issue_etl_issues_fetched_total",
			Help:        "Issues received from the GitHub API.",
			ConstLabels: labels,
		}),
		IssuesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "issue_etl_issues_loaded_total",
			Help:        "Rows written to the issues table.",
			ConstLabels: labels,
		}),
		APIRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "issue_etl_api_requests_total",
			Help:        "Issue list pages requested from the GitHub API.",
			ConstLabels: labels,
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "issue_etl_stage_duration_seconds",
			Help:        "Time spent in each pipeline stage.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"stage"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "issue_etl_failures_total",
			Help:        "Failed runs by the stage that failed.",
			ConstLabels: labels,
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "issue_etl_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful run.",
			ConstLabels: labels,
		}),
		LastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "issue_etl_last_run_duration_seconds",
			Help:        "Wall time of the last run.",
			ConstLabels: labels,
		}),
	}

	r.registry.MustRegister(
		r.IssuesFetched,
		r.IssuesLoaded,
		r.APIRequests,
		r.StageDuration,
		r.FailuresTotal,
		r.LastSuccess,
		r.LastRunDuration,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFailed counts a failure attributed to stage.
func (r *Recorder) RunFailed(stage string) {
	r.FailuresTotal.WithLabelValues(stage).Inc()
}

// RunSucceeded stamps the success time and total duration.
func (r *Recorder) RunSucceeded(at time.Time, d time.Duration) {
	r.LastSuccess.Set(float64(at.Unix()))
	r.LastRunDuration.Set(d.Seconds())
}

// Push sends every metric to the Pushgateway at url under job, replacing
// the job's previous group.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = DefaultJobName
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// WriteTextfile writes the metrics in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
