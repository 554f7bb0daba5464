package session

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionScheduleSpec is the default cron expression for retention sweeps:
// once a day at 03:17, off the hour so it doesn't collide with every other
// cron job pinned to midnight.
const RetentionScheduleSpec = "17 3 * * *"

// RetentionSweepResult records one completed sweep for callers that want to
// observe cleanup activity (logging, metrics, tests).
type RetentionSweepResult struct {
	Ran   time.Time
	Stats CleanupStats
	Err   error
}

// RetentionScheduler runs Cleanup on a cron schedule against baseDir.
type RetentionScheduler struct {
	baseDir string
	config  CleanupConfig
	cron    *cron.Cron

	mu      sync.Mutex
	lastRun RetentionSweepResult
	onRun   func(RetentionSweepResult)
}

// NewRetentionScheduler builds a scheduler that sweeps baseDir for expired
// sessions on spec (standard 5-field cron syntax; empty defaults to
// RetentionScheduleSpec). onRun, if non-nil, is called after every sweep
// (including failed ones) with the result.
func NewRetentionScheduler(baseDir string, config CleanupConfig, spec string, onRun func(RetentionSweepResult)) (*RetentionScheduler, error) {
	if spec == "" {
		spec = RetentionScheduleSpec
	}
	s := &RetentionScheduler{
		baseDir: baseDir,
		config:  config,
		cron:    cron.New(),
		onRun:   onRun,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the scheduler's goroutine. Non-blocking.
func (s *RetentionScheduler) Start() {
	s.cron.Start()
}

// Stop cancels pending runs and blocks until any in-flight sweep finishes.
func (s *RetentionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunNow triggers an immediate out-of-schedule sweep, for callers that want
// to reclaim space without waiting for the next cron tick (e.g. on startup).
func (s *RetentionScheduler) RunNow() RetentionSweepResult {
	s.sweep()
	return s.LastRun()
}

// LastRun returns the result of the most recently completed sweep.
func (s *RetentionScheduler) LastRun() RetentionSweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *RetentionScheduler) sweep() {
	stats, err := Cleanup(s.baseDir, s.config)
	result := RetentionSweepResult{Ran: time.Now(), Stats: stats, Err: err}

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()

	if s.onRun != nil {
		s.onRun(result)
	}
}
