// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalog metrics
	IncToolCreated()
	IncToolUpdated()
	IncToolDeleted()
	IncToolCacheHit()
	IncToolCacheMiss()

	// Event pipeline metrics
	IncClickRecorded(clickType string)
	IncConversionRecorded()

	// Job runner metrics
	IncJobRun(job, status string) // status: "completed" or "failed"
	ObserveJobDuration(job string, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
