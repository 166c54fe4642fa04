package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	apiLatency          *prometheus.HistogramVec
	httpPanics          *prometheus.CounterVec
	cacheOperations     *prometheus.CounterVec
	connectionEvents    *prometheus.CounterVec
	connectionUp        *prometheus.GaugeVec
	backupRuns          *prometheus.CounterVec
	backupDuration      prometheus.Histogram
	backupArtifactBytes *prometheus.GaugeVec
	backupPruned        prometheus.Counter
	emailsSent          *prometheus.CounterVec
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
}

func newMetricSet(namespace string) *metricSet {
	buckets := prometheus.DefBuckets
	backupBuckets := []float64{
		1, 5, 15, 30, 60, // seconds
		120, 300, 600, // minutes
		1800, 3600,
	}

	return &metricSet{
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_latency_seconds",
				Help:      "API endpoint latency",
				Buckets:   buckets,
			},
			[]string{"method", "path", "status"},
		),
		httpPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_panics_total",
				Help:      "Handler panics recovered by the HTTP server",
			},
			[]string{"method", "path"},
		),
		cacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		connectionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_events_total",
				Help:      "Backend connection lifecycle events",
			},
			[]string{"backend", "event"},
		),
		connectionUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_up",
				Help:      "Whether the backend connection is currently established (1) or not (0)",
			},
			[]string{"backend"},
		),
		backupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_runs_total",
				Help:      "Backup pipeline executions by result",
			},
			[]string{"result"},
		),
		backupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backup_duration_seconds",
				Help:      "Backup pipeline duration",
				Buckets:   backupBuckets,
			},
		),
		backupArtifactBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backup_artifact_bytes",
				Help:      "Size of the most recent backup artifact by kind",
			},
			[]string{"kind"},
		),
		backupPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_pruned_files_total",
				Help:      "Backup artifacts removed by retention pruning",
			},
		),
		emailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Outbound emails by template and result",
			},
			[]string{"template", "result"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
	}
}

func (c *metricSet) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.apiLatency,
		c.httpPanics,
		c.cacheOperations,
		c.connectionEvents,
		c.connectionUp,
		c.backupRuns,
		c.backupDuration,
		c.backupArtifactBytes,
		c.backupPruned,
		c.emailsSent,
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}
