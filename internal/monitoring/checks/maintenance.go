package checks

import (
	"context"
	"strings"
	"time"

	"github.com/flowoff/assistente/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance reports scheduled jobs that keep failing or have not run within their
// window. maxAges holds the window per job name; other jobs use six hours. The check
// is optional: job trouble degrades readiness without failing it.
func Maintenance(maxAges map[string]time.Duration) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		jobs := monitoring.Snapshot().Maintenance.Jobs
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance runs recorded"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string
		for _, job := range jobs {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.Worst(status, monitoring.StatusDown)
				problems = append(problems, job.Job+": "+strings.TrimSpace("failing "+job.LastError))
				continue
			}
			maxAge := maxAges[job.Job]
			if maxAge <= 0 {
				maxAge = defaultMaintenanceMaxAge
			}
			if !job.LastRunAt.IsZero() && now.Sub(job.LastRunAt) > maxAge {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": last run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	}).AsOptional()
}
