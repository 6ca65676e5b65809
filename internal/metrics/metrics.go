package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fxnlabs/kernel-bench/internal/artifact"
	"github.com/fxnlabs/kernel-bench/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "kbench"

// Recorder collects the metrics of one benchmark session. Every series
// carries the platform, threads and shape of the session as labels.
type Recorder struct {
	registry *prometheus.Registry

	KernelDuration prometheus.Histogram
	GFLOPS         *prometheus.GaugeVec
	Variance       prometheus.Gauge
	CacheHits      prometheus.Counter
	Regenerations  prometheus.Counter
	Failures       prometheus.Counter
}

// NewRecorder registers the session collectors on a private registry.
func NewRecorder(key artifact.Key) *Recorder {
	labels := prometheus.Labels{
		"platform": key.Platform,
		"threads":  strconv.Itoa(key.Threads),
		"shape":    key.Shape().String(),
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		KernelDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "kbench_kernel_duration_seconds",
			Help:        "Duration of timed kernel invocations in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 2, 30), // 1µs to ~9min
		}),
		GFLOPS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "kbench_gflops",
			Help:        "Throughput of the last session in GFLOPS",
			ConstLabels: labels,
		}, []string{"stat"}),
		Variance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kbench_variance_seconds2",
			Help:        "Population variance of the timed runs",
			ConstLabels: labels,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kbench_artifact_cache_hits_total",
			Help:        "Artifacts found in the cache without regeneration",
			ConstLabels: labels,
		}),
		Regenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kbench_artifact_regenerations_total",
			Help:        "Artifacts that loaded after regeneration",
			ConstLabels: labels,
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kbench_artifact_failures_total",
			Help:        "Artifacts that could not be resolved",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.KernelDuration, r.GFLOPS, r.Variance, r.CacheHits, r.Regenerations, r.Failures)
	return r
}

// Registry exposes the collectors for scraping or tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) CacheHit(artifact.Key)    { r.CacheHits.Inc() }
func (r *Recorder) Regenerated(artifact.Key) { r.Regenerations.Inc() }
func (r *Recorder) Failed(artifact.Key)      { r.Failures.Inc() }

// Observe records one timed invocation.
func (r *Recorder) Observe(d time.Duration) {
	r.KernelDuration.Observe(d.Seconds())
}

// SetReport publishes the summary of a finished session.
func (r *Recorder) SetReport(report stats.Report) {
	r.GFLOPS.WithLabelValues("median").Set(report.MedianGFLOPS())
	r.GFLOPS.WithLabelValues("max").Set(report.MinGFLOPS())
	r.GFLOPS.WithLabelValues("avg").Set(report.AverageGFLOPS())
	r.Variance.Set(report.Variance)
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway, replacing the job's metrics.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
