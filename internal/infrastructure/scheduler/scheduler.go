// Package scheduler runs the periodic maintenance jobs on robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Errors returned by the scheduler
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already registered")
	ErrJobAlreadyRunning = errors.New("job is already running")
)

// JobFunc is the body of a scheduled job. The context is cancelled once
// the configured job timeout elapses.
type JobFunc func(ctx context.Context) error

// JobRecorder receives the outcome of every run.
type JobRecorder interface {
	JobFinished(job string, duration time.Duration, err error)
}

// JobStatus describes a registered job and its last run.
type JobStatus struct {
	Name         string        `json:"name"`
	Spec         string        `json:"spec"`
	Running      bool          `json:"running"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	LastRunAt    *time.Time    `json:"last_run_at,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	NextRunAt    *time.Time    `json:"next_run_at,omitempty"`
}

type job struct {
	entryID cron.EntryID
	fn      JobFunc
	status  JobStatus
}

// Scheduler wraps a cron instance with per-job bookkeeping. Runs of the
// same job never overlap.
type Scheduler struct {
	cron     *cron.Cron
	timeout  time.Duration
	logger   *zap.Logger
	recorder JobRecorder

	mu   sync.Mutex
	jobs map[string]*job
	now  func() time.Time
}

// New creates a stopped scheduler. recorder may be nil.
func New(cfg config.SchedulerConfig, logger *zap.Logger, recorder JobRecorder) *Scheduler {
	logger = logger.Named("scheduler")
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{logger.Sugar()}))),
		timeout:  timeout,
		logger:   logger,
		recorder: recorder,
		jobs:     make(map[string]*job),
		now:      time.Now,
	}
}

// Register schedules fn under name with a standard five-field spec or a
// descriptor such as "@hourly". An empty spec leaves the job disabled.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	if spec == "" {
		s.logger.Info("Job disabled", zap.String("job", name))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		if err := s.run(context.Background(), name); err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
			s.logger.Debug("scheduled run failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid spec %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = &job{entryID: id, fn: fn, status: JobStatus{Name: name, Spec: spec}}
	s.logger.Info("Job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.Status())))
}

// Stop stops firing new runs and waits for running ones or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	return s.run(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if j.status.Running {
		s.mu.Unlock()
		s.logger.Warn("Skipping run, previous one still active", zap.String("job", name))
		return ErrJobAlreadyRunning
	}
	j.status.Running = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	s.logger.Info("Job started", zap.String("job", name))

	var err error
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelJob: name}, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		err = j.fn(ctx)
	})
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	j.status.Running = false
	j.status.Runs++
	j.status.LastRunAt = &start
	j.status.LastDuration = elapsed
	j.status.LastError = ""
	if err != nil {
		j.status.Failures++
		j.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.JobFinished(name, elapsed, err)
	}
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", name), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Info("Job finished", zap.String("job", name), zap.Duration("duration", elapsed))
	return nil
}

// Status returns a snapshot of every registered job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.status
		if next := s.cron.Entry(j.entryID).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
