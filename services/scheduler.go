package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"supplement-program-api/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobFunc is one execution of a background job.
type JobFunc func(ctx context.Context) (*JobResult, error)

// Job is a periodic task. LockName, when set, makes runs exclusive across processes.
type Job struct {
	Name     string
	Interval time.Duration
	LockName string
	Run      JobFunc
}

type scheduledJob struct {
	Job
	mu sync.Mutex
}

// Scheduler runs registered jobs on independent tickers. A run is skipped when the
// previous run of the same job is still going, here or in another process.
type Scheduler struct {
	db         *gorm.DB
	runs       *SweepRunService
	logger     *zap.Logger
	runOnStart bool

	mu   sync.RWMutex
	jobs map[string]*scheduledJob
}

func NewScheduler(db *gorm.DB, logger *zap.Logger, runOnStart bool) *Scheduler {
	if db == nil {
		db = config.DB
	}
	if logger == nil {
		logger = config.Logger
	}
	return &Scheduler{
		db:         db,
		runs:       NewSweepRunService(db),
		logger:     logger.Named("scheduler"),
		runOnStart: runOnStart,
		jobs:       make(map[string]*scheduledJob),
	}
}

func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &scheduledJob{Job: job}
}

// JobNames returns the registered job names in sorted order.
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) job(name string) (*scheduledJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[name]
	return j, ok
}

// Start runs every job loop and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, name := range s.JobNames() {
		j, _ := s.job(name)
		if j.Interval <= 0 {
			s.logger.Warn("job has no interval, not scheduling", zap.String("job", name))
			continue
		}
		wg.Add(1)
		go func(j *scheduledJob) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	s.logger.Info("scheduler started", zap.Strings("jobs", s.JobNames()))
	wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, j *scheduledJob) {
	if s.runOnStart {
		s.tick(ctx, j)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, j *scheduledJob) {
	if _, err := s.execute(ctx, j, "scheduler"); err != nil {
		if errors.Is(err, ErrSweepAlreadyRunning) {
			s.logger.Info("previous run still in progress, skipping", zap.String("job", j.Name))
			return
		}
		if ctx.Err() == nil {
			s.logger.Error("job failed", zap.String("job", j.Name), zap.Error(err))
		}
	}
}

// RunNow executes a registered job immediately, subject to the same overlap guards.
func (s *Scheduler) RunNow(ctx context.Context, name, trigger string) (*JobResult, error) {
	j, ok := s.job(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j, trigger)
}

func (s *Scheduler) execute(ctx context.Context, j *scheduledJob, trigger string) (*JobResult, error) {
	if !j.mu.TryLock() {
		return nil, ErrSweepAlreadyRunning
	}
	defer j.mu.Unlock()

	release, err := acquireAdvisoryLock(ctx, s.db, j.LockName)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer func() {
			if relErr := release(); relErr != nil {
				s.logger.Warn("failed to release job lock", zap.String("job", j.Name), zap.Error(relErr))
			}
		}()
	}

	run, err := s.runs.Start(ctx, j.Name, trigger)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}

	done := TrackJob(j.Name)
	result, runErr := j.Run(ctx)
	if result == nil {
		result = &JobResult{}
	}

	// finish the run record even if ctx was cancelled mid-run
	recordCtx := persistentContext(ctx)
	if runErr != nil {
		done("failed")
		if err := s.runs.MarkFailure(recordCtx, run.ID, result, runErr); err != nil {
			s.logger.Warn("failed to mark run failure", zap.String("job", j.Name), zap.Error(err))
		}
		return result, runErr
	}
	done("success")
	if err := s.runs.MarkSuccess(recordCtx, run.ID, result); err != nil {
		s.logger.Warn("failed to mark run success", zap.String("job", j.Name), zap.Error(err))
	}
	s.logger.Info("job finished",
		zap.String("job", j.Name),
		zap.String("trigger", trigger),
		zap.Int("processed", result.Processed),
		zap.Int("changed", result.Changed),
		zap.Int("failed", result.Failed))
	return result, nil
}

// acquireAdvisoryLock takes a named, non-blocking database lock on a dedicated connection.
// SQLite runs in a single process and needs none.
func acquireAdvisoryLock(ctx context.Context, db *gorm.DB, lockName string) (func() error, error) {
	if strings.TrimSpace(lockName) == "" {
		return nil, nil
	}

	var lockSQL, unlockSQL string
	switch db.Dialector.Name() {
	case "mysql":
		lockSQL, unlockSQL = "SELECT GET_LOCK(?, 0)", "SELECT RELEASE_LOCK(?)"
	case "postgres":
		lockSQL, unlockSQL = "SELECT pg_try_advisory_lock(hashtext($1))", "SELECT pg_advisory_unlock(hashtext($1))"
	default:
		return nil, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var ok sql.NullBool
	if err := conn.QueryRowContext(ctx, lockSQL, lockName).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", lockName, err)
	}
	if !ok.Valid || !ok.Bool {
		_ = conn.Close()
		return nil, ErrSweepAlreadyRunning
	}

	return func() error {
		defer conn.Close()
		var released sql.NullBool
		return conn.QueryRowContext(persistentContext(ctx), unlockSQL, lockName).Scan(&released)
	}, nil
}
