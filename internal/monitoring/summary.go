package monitoring

import "time"

// Summary surfaces aggregated monitoring data for administrative dashboards.
type Summary struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Cache       CacheSummary        `json:"cache"`
	Connections []ConnectionSummary `json:"connections"`
	Backups     BackupSummary       `json:"backups"`
	Emails      []EmailSummary      `json:"emails"`
	Maintenance MaintenanceSummary  `json:"maintenance"`
}

type CacheSummary struct {
	Operations uint64 `json:"operations"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Errors     uint64 `json:"errors"`
}

type ConnectionSummary struct {
	Backend     string    `json:"backend"`
	Connected   bool      `json:"connected"`
	LastEvent   string    `json:"last_event"`
	LastEventAt time.Time `json:"last_event_at"`
	Reconnects  uint64    `json:"reconnects"`
	Errors      uint64    `json:"errors"`
}

type BackupSummary struct {
	Runs          uint64           `json:"runs"`
	Failures      uint64           `json:"failures"`
	PrunedFiles   uint64           `json:"pruned_files"`
	LastStatus    string           `json:"last_status,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	LastRunAt     time.Time        `json:"last_run_at"`
	LastDuration  time.Duration    `json:"last_duration"`
	ArtifactBytes map[string]int64 `json:"artifact_bytes"`
}

type EmailSummary struct {
	Template   string    `json:"template"`
	Sent       uint64    `json:"sent"`
	Failed     uint64    `json:"failed"`
	LastSentAt time.Time `json:"last_sent_at"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := current(); module != nil {
		return module.Summary()
	}
	return Summary{GeneratedAt: time.Now()}
}

// Summary returns a point-in-time summary of this module's statistics.
func (m *Module) Summary() Summary {
	if m == nil || m.stats == nil {
		return Summary{GeneratedAt: time.Now()}
	}
	return m.stats.summary()
}
