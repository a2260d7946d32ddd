package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// OutputProcessor runs the output step for one run date.
type OutputProcessor interface {
	ProcessOutput(ctx context.Context, runDate time.Time) error
}

// Scheduler runs the output step for "today" on start and on every tick,
// skipping a date that already completed successfully.
type Scheduler struct {
	runner   OutputProcessor
	clock    clockwork.Clock
	interval time.Duration
	location *time.Location
	logger   *slog.Logger

	mu     sync.Mutex
	status domain.RunStatus
}

// NewScheduler creates a Scheduler. A nil clock uses the real clock.
func NewScheduler(runner OutputProcessor, clock clockwork.Clock, interval time.Duration, location *time.Location, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner:   runner,
		clock:    clock,
		interval: interval,
		location: location,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "timezone", s.location.String())
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	runDate := domain.DateIn(s.clock.Now(), s.location)
	date := runDate.Format(domain.DateLayout)

	s.mu.Lock()
	if s.status.LastSuccessDate == date {
		s.mu.Unlock()
		s.logger.Debug("run already succeeded today", "run_date", date)
		return
	}
	s.status.RunDate = date
	s.status.StartedAt = s.clock.Now()
	s.status.FinishedAt = time.Time{}
	s.status.InProgress = true
	s.status.Error = ""
	s.mu.Unlock()

	err := s.runner.ProcessOutput(ctx, runDate)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.FinishedAt = s.clock.Now()
	s.status.InProgress = false
	if err != nil {
		s.status.Error = err.Error()
		if ctx.Err() == nil {
			s.logger.Error("scheduled run failed", "run_date", date, "error", err)
		}
		return
	}
	s.status.LastSuccessDate = date
}

// Status reports the latest run.
func (s *Scheduler) Status() domain.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CheckReadiness returns nil once any run has succeeded.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if s.Status().LastSuccessDate == "" {
		return errors.New("no output run has succeeded yet")
	}
	return nil
}
