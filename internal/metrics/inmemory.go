package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ToolsCreated        uint64
	ToolsUpdated        uint64
	ToolsDeleted        uint64
	ToolCacheHits       uint64
	ToolCacheMisses     uint64
	ClicksRecorded      map[string]uint64
	ConversionsRecorded uint64
	JobRuns             map[string]uint64 // key: job + ":" + status
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                  sync.Mutex
	toolsCreated        uint64
	toolsUpdated        uint64
	toolsDeleted        uint64
	toolCacheHits       uint64
	toolCacheMisses     uint64
	clicksRecorded      map[string]uint64
	conversionsRecorded uint64
	jobRuns             map[string]uint64
	jobDurations        map[string]time.Duration
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		clicksRecorded: make(map[string]uint64),
		jobRuns:        make(map[string]uint64),
		jobDurations:   make(map[string]time.Duration),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	clicks := make(map[string]uint64, len(m.clicksRecorded))
	for k, v := range m.clicksRecorded {
		clicks[k] = v
	}
	jobs := make(map[string]uint64, len(m.jobRuns))
	for k, v := range m.jobRuns {
		jobs[k] = v
	}

	return Snapshot{
		ToolsCreated:        m.toolsCreated,
		ToolsUpdated:        m.toolsUpdated,
		ToolsDeleted:        m.toolsDeleted,
		ToolCacheHits:       m.toolCacheHits,
		ToolCacheMisses:     m.toolCacheMisses,
		ClicksRecorded:      clicks,
		ConversionsRecorded: m.conversionsRecorded,
		JobRuns:             jobs,
	}
}

func (m *InMemoryRecorder) IncToolCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolsCreated++
}

func (m *InMemoryRecorder) IncToolUpdated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolsUpdated++
}

func (m *InMemoryRecorder) IncToolDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolsDeleted++
}

func (m *InMemoryRecorder) IncToolCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCacheHits++
}

func (m *InMemoryRecorder) IncToolCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCacheMisses++
}

func (m *InMemoryRecorder) IncClickRecorded(clickType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicksRecorded[clickType]++
}

func (m *InMemoryRecorder) IncConversionRecorded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversionsRecorded++
}

func (m *InMemoryRecorder) IncJobRun(job, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobRuns[job+":"+status]++
}

func (m *InMemoryRecorder) ObserveJobDuration(job string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobDurations[job] += duration
}
