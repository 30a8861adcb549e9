// Package scheduler runs named jobs on fixed intervals.
//
// Jobs are independent: each has its own ticker goroutine and its own
// mutex, so one job's failure or slow run never delays another. A
// failed run is logged and the interval simply re-arms - there is no
// retry with backoff. Jobs can also be triggered synchronously, which
// is how the execute API endpoint and the tests drive them without
// waiting on wall-clock time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/toolvane/toolvane/internal/metrics"
)

// Common scheduler errors.
var (
	// ErrUnknownJob signals a trigger for a job name never registered.
	ErrUnknownJob = errors.New("unknown job")
	// ErrAlreadyStarted signals a second Start call.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// State is the lifecycle state of a job between runs.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// RunFunc executes one run of a job.
type RunFunc func(ctx context.Context) error

// Job describes a recurring task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      RunFunc
}

// JobStatus is a snapshot of one job's last outcome.
type JobStatus struct {
	Name       string     `json:"name"`
	Interval   string     `json:"interval"`
	State      State      `json:"state"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastRunID  string     `json:"last_run_id,omitempty"`
	LastStatus string     `json:"last_status,omitempty"` // completed, failed
	LastError  string     `json:"last_error,omitempty"`
	Runs       int64      `json:"runs"`
}

type jobEntry struct {
	job Job

	// runMu serializes runs of this job so a triggered run never
	// interleaves with a ticked run of the same job.
	runMu sync.Mutex

	mu         sync.Mutex
	state      State
	lastRun    time.Time
	lastRunID  string
	lastStatus string
	lastError  string
	runs       int64
}

// Scheduler owns a set of named recurring jobs.
type Scheduler struct {
	logger  *slog.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	jobs    map[string]*jobEntry
	order   []string
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(logger *slog.Logger, recorder metrics.Recorder) *Scheduler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		metrics: recorder,
		jobs:    make(map[string]*jobEntry),
	}
}

// Register adds a job. Registering after Start or reusing a name is an
// error.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run function is required", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	s.jobs[job.Name] = &jobEntry{job: job, state: StateIdle}
	s.order = append(s.order, job.Name)
	return nil
}

// Start launches one ticker goroutine per registered job and returns.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		entry := s.jobs[name]
		s.wg.Add(1)
		go s.loop(ctx, entry)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", len(s.order))
	return nil
}

// loop ticks one job until the scheduler context is cancelled.
func (s *Scheduler) loop(ctx context.Context, entry *jobEntry) {
	defer s.wg.Done()

	ticker := time.NewTicker(entry.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, entry)
		}
	}
}

// Trigger runs a job synchronously, outside its schedule. The interval
// is unaffected. Returns ErrUnknownJob for unregistered names and the
// run's own error otherwise.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runJob(ctx, entry)
}

// runJob executes one run, recording outcome and timing. The job's own
// mutex guarantees that two runs of the same job never overlap.
func (s *Scheduler) runJob(ctx context.Context, entry *jobEntry) error {
	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	runID := ulid.Make().String()
	entry.setState(StateRunning)
	start := time.Now()

	err := entry.job.Run(ctx)

	duration := time.Since(start)
	s.metrics.ObserveJobDuration(entry.job.Name, duration)

	if err != nil && !errors.Is(err, context.Canceled) {
		entry.finish(runID, "failed", err)
		s.metrics.IncJobRun(entry.job.Name, "failed")
		s.logger.Error("job failed",
			"job", entry.job.Name,
			"run_id", runID,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	entry.finish(runID, "completed", nil)
	s.metrics.IncJobRun(entry.job.Name, "completed")
	s.logger.Info("job completed",
		"job", entry.job.Name,
		"run_id", runID,
		"duration_ms", duration.Milliseconds(),
	)
	return err
}

// Status reports a snapshot of all jobs in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		entry := s.jobs[name]
		entry.mu.Lock()
		status := JobStatus{
			Name:       entry.job.Name,
			Interval:   entry.job.Interval.String(),
			State:      entry.state,
			LastRunID:  entry.lastRunID,
			LastStatus: entry.lastStatus,
			LastError:  entry.lastError,
			Runs:       entry.runs,
		}
		if !entry.lastRun.IsZero() {
			t := entry.lastRun
			status.LastRun = &t
		}
		entry.mu.Unlock()
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown stops all tickers and waits for in-flight runs, bounded by
// the context deadline.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

func (e *jobEntry) setState(state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

func (e *jobEntry) finish(runID, status string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.lastRun = time.Now().UTC()
	e.lastRunID = runID
	e.lastStatus = status
	e.runs++
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
}
