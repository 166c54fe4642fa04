package checks

import (
	"context"
	"time"

	"github.com/flowoff/assistente/internal/monitoring"
)

const defaultBackupMaxAge = 26 * time.Hour

// Backup is an optional check reporting degraded when the latest backup run failed or
// is older than maxAge. It never reports down.
func Backup(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultBackupMaxAge
	}

	return monitoring.NewCheck("backup", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		summary := monitoring.Snapshot().Backups

		switch {
		case summary.Runs == 0:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no backup recorded yet", Duration: time.Since(start)}
		case summary.LastStatus != "success":
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "last backup failed: " + summary.LastError, Duration: time.Since(start)}
		case time.Since(summary.LastRunAt) > maxAge:
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "last backup at " + summary.LastRunAt.UTC().Format(time.RFC3339),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	}).AsOptional()
}
