package monitoring

import (
	"strings"
	"time"
)

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := current()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordPanic counts a recovered handler panic on the supplied route.
func RecordPanic(method, path string) {
	module := current()
	if module == nil {
		return
	}
	if path = sanitizePath(path); path == "" {
		path = "unknown"
	}
	module.metrics.httpPanics.WithLabelValues(strings.ToUpper(method), path).Inc()
}

// RecordCacheOperation counts a cache call by operation and result (hit, miss, ok, error, refused).
func RecordCacheOperation(operation, result string) {
	module := current()
	if module == nil {
		return
	}
	op := normalizeLabel(operation)
	res := normalizeLabel(result)
	module.metrics.cacheOperations.WithLabelValues(op, res).Inc()
	module.stats.recordCache(op, res)
}

// RecordConnectionEvent tracks a lifecycle event (connected, reconnecting, error) of a backend connection.
func RecordConnectionEvent(backend, event string) {
	module := current()
	if module == nil {
		return
	}
	backend = normalizeLabel(backend)
	event = normalizeLabel(event)
	module.metrics.connectionEvents.WithLabelValues(backend, event).Inc()
	switch event {
	case "connected":
		module.metrics.connectionUp.WithLabelValues(backend).Set(1)
	case "reconnecting", "error":
		module.metrics.connectionUp.WithLabelValues(backend).Set(0)
	}
	module.stats.connectionEntry(backend).record(event)
}

// RecordBackupRun records the outcome of a backup pipeline run along with the size of
// each artifact it produced, keyed by artifact kind.
func RecordBackupRun(result, message string, duration time.Duration, sizes map[string]int64) {
	module := current()
	if module == nil {
		return
	}
	result = normalizeLabel(result)
	module.metrics.backupRuns.WithLabelValues(result).Inc()
	observeDuration(module.metrics.backupDuration, duration)
	for kind, size := range sizes {
		module.metrics.backupArtifactBytes.WithLabelValues(normalizeLabel(kind)).Set(float64(size))
	}
	module.stats.backups.record(result, strings.TrimSpace(message), duration, sizes)
}

// RecordBackupPruned counts artifacts removed by retention pruning.
func RecordBackupPruned(count int) {
	module := current()
	if module == nil || count <= 0 {
		return
	}
	module.metrics.backupPruned.Add(float64(count))
	module.stats.backups.recordPruned(count)
}

// RecordEmail counts an outbound email by template and result.
func RecordEmail(template, result string) {
	module := current()
	if module == nil {
		return
	}
	template = normalizeLabel(template)
	result = normalizeLabel(result)
	module.metrics.emailsSent.WithLabelValues(template, result).Inc()
	module.stats.emailEntry(template).record(result)
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := current()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

func sanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	return normalizePath(path)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, " ", "_")
	if path == "" {
		return "root"
	}
	return path
}
