package service

import (
	"context"
	"errors"
	"time"

	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

// Sweeper drives the scheduler: every interval it asks the schedule service
// to process due messages. Restart-safe because due entries live in the
// database, not in memory.
type Sweeper struct {
	schedule ScheduleService
	interval time.Duration
	log      logger.Logger
}

func NewSweeper(schedule ScheduleService, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{schedule: schedule, interval: interval, log: log}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("Scheduler sweep loop started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler sweep loop stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.schedule.ProcessDueMessages(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrSweepInFlight) {
			s.log.Debug("Previous sweep still running, skipping tick")
			return
		}
		s.log.Error("Scheduler sweep failed", "error", err)
		return
	}

	if result.Due > 0 {
		s.log.Info("Scheduler sweep completed",
			"due", result.Due, "sent", result.Sent, "failed", result.Failed)
	}
}
