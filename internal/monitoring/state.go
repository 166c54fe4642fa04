package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	cacheErrors atomic.Uint64
	cacheOps    atomic.Uint64

	backups backupStats

	connections sync.Map // string -> *connectionStats
	emails      sync.Map // string -> *emailStats
	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	return &statStore{}
}

func (s *statStore) summary() Summary {
	return Summary{
		GeneratedAt: time.Now(),
		Cache: CacheSummary{
			Operations: s.cacheOps.Load(),
			Hits:       s.cacheHits.Load(),
			Misses:     s.cacheMisses.Load(),
			Errors:     s.cacheErrors.Load(),
		},
		Connections: s.cloneConnections(),
		Backups:     s.backups.snapshot(),
		Emails:      s.cloneEmails(),
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) recordCache(operation, result string) {
	s.cacheOps.Add(1)
	switch result {
	case "hit":
		s.cacheHits.Add(1)
	case "miss":
		s.cacheMisses.Add(1)
	case "error":
		s.cacheErrors.Add(1)
	}
}

func (s *statStore) cloneConnections() []ConnectionSummary {
	summaries := []ConnectionSummary{}
	s.connections.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*connectionStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Backend < summaries[j].Backend })
	return summaries
}

func (s *statStore) cloneEmails() []EmailSummary {
	summaries := []EmailSummary{}
	s.emails.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*emailStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Template < summaries[j].Template })
	return summaries
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func (s *statStore) connectionEntry(backend string) *connectionStats {
	value, ok := s.connections.Load(backend)
	if ok {
		return value.(*connectionStats)
	}
	stats := &connectionStats{}
	actual, _ := s.connections.LoadOrStore(backend, stats)
	return actual.(*connectionStats)
}

func (s *statStore) emailEntry(template string) *emailStats {
	value, ok := s.emails.Load(template)
	if ok {
		return value.(*emailStats)
	}
	stats := &emailStats{}
	actual, _ := s.emails.LoadOrStore(template, stats)
	return actual.(*emailStats)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type connectionStats struct {
	mu          sync.Mutex
	connected   bool
	lastEvent   string
	lastEventAt time.Time
	reconnects  uint64
	errors      uint64
}

func (c *connectionStats) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEvent = event
	c.lastEventAt = time.Now()
	switch event {
	case "connected":
		c.connected = true
	case "reconnecting":
		c.connected = false
		c.reconnects++
	case "error":
		c.connected = false
		c.errors++
	}
}

func (c *connectionStats) snapshot(backend string) ConnectionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionSummary{
		Backend:     backend,
		Connected:   c.connected,
		LastEvent:   c.lastEvent,
		LastEventAt: c.lastEventAt,
		Reconnects:  c.reconnects,
		Errors:      c.errors,
	}
}

type emailStats struct {
	sent     atomic.Uint64
	failed   atomic.Uint64
	lastSent atomic.Int64 // unix nano
}

func (e *emailStats) record(result string) {
	if result == "success" {
		e.sent.Add(1)
		e.lastSent.Store(time.Now().UnixNano())
		return
	}
	e.failed.Add(1)
}

func (e *emailStats) snapshot(template string) EmailSummary {
	summary := EmailSummary{
		Template: template,
		Sent:     e.sent.Load(),
		Failed:   e.failed.Load(),
	}
	if last := e.lastSent.Load(); last > 0 {
		summary.LastSentAt = time.Unix(0, last)
	}
	return summary
}

type backupStats struct {
	mu           sync.Mutex
	runs         uint64
	failures     uint64
	pruned       uint64
	lastStatus   string
	lastError    string
	lastRunAt    time.Time
	lastDuration time.Duration
	lastSizes    map[string]int64
}

func (b *backupStats) record(result, message string, duration time.Duration, sizes map[string]int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if duration < 0 {
		duration = 0
	}
	b.runs++
	if result != "success" {
		b.failures++
	}
	b.lastStatus = result
	b.lastError = message
	b.lastRunAt = time.Now()
	b.lastDuration = duration
	if len(sizes) > 0 {
		b.lastSizes = make(map[string]int64, len(sizes))
		for kind, size := range sizes {
			b.lastSizes[kind] = size
		}
	}
}

func (b *backupStats) recordPruned(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	b.pruned += uint64(n)
	b.mu.Unlock()
}

func (b *backupStats) snapshot() BackupSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	sizes := make(map[string]int64, len(b.lastSizes))
	for kind, size := range b.lastSizes {
		sizes[kind] = size
	}
	return BackupSummary{
		Runs:          b.runs,
		Failures:      b.failures,
		PrunedFiles:   b.pruned,
		LastStatus:    b.lastStatus,
		LastError:     b.lastError,
		LastRunAt:     b.lastRunAt,
		LastDuration:  b.lastDuration,
		ArtifactBytes: sizes,
	}
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	summary := MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		TotalRuns:           m.totalRuns.Load(),
	}
	if last := m.lastRun.Load(); last > 0 {
		summary.LastRunAt = time.Unix(0, last)
	}
	if last := m.lastSuccessfulRun.Load(); last > 0 {
		summary.LastSuccessAt = time.Unix(0, last)
	}
	return summary
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
