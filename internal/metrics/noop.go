package metrics

import "time"

// NoopRecorder discards all metrics. Useful as a default when no
// metrics backend is configured.
type NoopRecorder struct{}

// NewNoop returns a Recorder that does nothing.
func NewNoop() *NoopRecorder {
	return &NoopRecorder{}
}

func (*NoopRecorder) IncToolCreated()                          {}
func (*NoopRecorder) IncToolUpdated()                          {}
func (*NoopRecorder) IncToolDeleted()                          {}
func (*NoopRecorder) IncToolCacheHit()                         {}
func (*NoopRecorder) IncToolCacheMiss()                        {}
func (*NoopRecorder) IncClickRecorded(string)                  {}
func (*NoopRecorder) IncConversionRecorded()                   {}
func (*NoopRecorder) IncJobRun(string, string)                 {}
func (*NoopRecorder) ObserveJobDuration(string, time.Duration) {}
