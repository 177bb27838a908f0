//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// PrometheusMetrics holds the pipeline metrics. All methods are safe to call
// on a nil receiver, which is what components get when monitoring is off.
type PrometheusMetrics struct {
	ListingPages       *prometheus.CounterVec
	EntriesCreated     prometheus.Counter
	IngestionRuns      *prometheus.CounterVec
	IngestionDurations prometheus.Histogram
	ArchiveBytes       *prometheus.CounterVec
	ArchiveRuns        *prometheus.CounterVec
	IndexerRuns        *prometheus.CounterVec
	OpenConnections    prometheus.Gauge
}

// NewPrometheusMetrics registers all metrics with reg. Pass NoopRegisterer to
// get working but unregistered collectors.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = noop
	}

	return &PrometheusMetrics{
		ListingPages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_pages_total",
			Help:      "Number of object storage listing pages fetched",
		}, []string{"container"}),
		EntriesCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_created_total",
			Help:      "Number of catalog entries written",
		}),
		IngestionRuns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_runs_total",
			Help:      "Number of ingestion runs by outcome",
		}, []string{"status"}),
		IngestionDurations: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Duration of ingestion runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		ArchiveBytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_total",
			Help:      "Compressed archive bytes committed per format",
		}, []string{"format"}),
		ArchiveRuns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_runs_total",
			Help:      "Number of archive runs by outcome",
		}, []string{"status"}),
		IndexerRuns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexer_runs_total",
			Help:      "Number of monitored indexer runs by job and outcome",
		}, []string{"job", "status"}),
		OpenConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metrics_open_connections",
			Help:      "Open connections to the metrics listener",
		}),
	}
}

func (pm *PrometheusMetrics) PageFetched(container string) {
	if pm == nil {
		return
	}
	pm.ListingPages.WithLabelValues(container).Inc()
}

func (pm *PrometheusMetrics) EntryCreated() {
	if pm == nil {
		return
	}
	pm.EntriesCreated.Inc()
}

// IngestionFinished records the outcome of one ingestion run.
func (pm *PrometheusMetrics) IngestionFinished(status string, seconds float64) {
	if pm == nil {
		return
	}
	pm.IngestionRuns.WithLabelValues(status).Inc()
	pm.IngestionDurations.Observe(seconds)
}

func (pm *PrometheusMetrics) ArchiveWritten(format string, bytes int64) {
	if pm == nil {
		return
	}
	pm.ArchiveBytes.WithLabelValues(format).Add(float64(bytes))
}

func (pm *PrometheusMetrics) ArchiveFinished(status string) {
	if pm == nil {
		return
	}
	pm.ArchiveRuns.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) IndexerFinished(job, status string) {
	if pm == nil {
		return
	}
	pm.IndexerRuns.WithLabelValues(job, status).Inc()
}
