// Package metrics holds the prometheus collectors for the upload pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics is registered against its own registry so tests can build many.
type Metrics struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	filesWritten   prometheus.Counter
	fileFailures   prometheus.Counter
	projects       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitehost_uploads_total",
				Help: "Total number of uploads by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		uploadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitehost_upload_duration_seconds",
				Help:    "Time spent materializing an upload",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"kind"},
		),
		filesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitehost_files_written_total",
			Help: "Files written by folder uploads",
		}),
		fileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitehost_file_failures_total",
			Help: "Files skipped by folder uploads after a write error",
		}),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitehost_projects",
			Help: "Hosted projects seen at the last listing",
		}),
	}
	m.registry.MustRegister(
		m.uploads,
		m.uploadDuration,
		m.filesWritten,
		m.fileFailures,
		m.projects,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveUpload records one finished upload.
func (m *Metrics) ObserveUpload(kind string, err error, took time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.uploads.WithLabelValues(kind, outcome).Inc()
	m.uploadDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) AddFiles(written, failed int) {
	m.filesWritten.Add(float64(written))
	m.fileFailures.Add(float64(failed))
}

func (m *Metrics) SetProjects(n int) { m.projects.Set(float64(n)) }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
