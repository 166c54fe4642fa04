package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "assistente".
	Namespace               string
	DisableGoCollector      bool
	DisableProcessCollector bool
	// CheckTimeout bounds each health probe.
	CheckTimeout time.Duration
}

// Module owns the Prometheus registry, the in-process summary statistics and the health probes.
type Module struct {
	registry *prometheus.Registry
	metrics  *metricSet
	stats    *statStore
	health   *HealthManager
}

// NewModule constructs a monitoring module with its own Prometheus registry.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "assistente"
	}

	registry := prometheus.NewRegistry()
	var runtime []prometheus.Collector
	if !opts.DisableGoCollector {
		runtime = append(runtime, collectors.NewGoCollector())
	}
	if !opts.DisableProcessCollector {
		runtime = append(runtime, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := newMetricSet(namespace)
	for _, collector := range append(runtime, metrics.all()...) {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &Module{
		registry: registry,
		metrics:  metrics,
		stats:    newStatStore(),
		health:   NewHealthManager(opts.CheckTimeout),
	}, nil
}

// Handler serves the module's metrics in the Prometheus exposition format.
func (m *Module) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Health exposes the liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var globalModule atomic.Pointer[Module]

// SetModule installs the process-wide module used by the Record* helpers. Until a module
// is set those helpers are no-ops.
func SetModule(module *Module) {
	if module != nil {
		globalModule.Store(module)
	}
}

func current() *Module {
	return globalModule.Load()
}
