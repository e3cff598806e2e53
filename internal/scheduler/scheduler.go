// Package scheduler turns due schedules into trigger events. It is a
// plain ticker loop: firing a schedule publishes the same
// schedule/trigger-manual event a user action would, nothing more.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/events"
	"github.com/pressmill/pressmill/internal/repository"
)

// Scheduler scans for due schedules on a fixed tick.
type Scheduler struct {
	schedules repository.ScheduleRepository
	jobs      repository.JobRepository
	publisher events.Publisher
	tick      time.Duration
	logger    *zap.Logger
}

// New creates a scheduler.
func New(
	schedules repository.ScheduleRepository,
	jobs repository.JobRepository,
	publisher events.Publisher,
	tick time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		jobs:      jobs,
		publisher: publisher,
		tick:      tick,
		logger:    logger,
	}
}

// Run blocks until the context is cancelled, emitting one trigger event
// per due schedule on each tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("tick", s.tick))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	due, err := s.schedules.ListDue(ctx)
	if err != nil {
		s.logger.Error("failed to list due schedules", zap.Error(err))
		return
	}

	for _, schedule := range due {
		if err := s.emit(ctx, schedule); err != nil {
			s.logger.Error("failed to emit schedule trigger",
				zap.String("schedule_id", schedule.ScheduleID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *Scheduler) emit(ctx context.Context, schedule *domain.Schedule) error {
	data, err := json.Marshal(domain.ScheduleTriggerPayload{ScheduleID: schedule.ScheduleID})
	if err != nil {
		return err
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:     jobID,
		Kind:      domain.KindGenerateArticle,
		Payload:   data,
		Status:    domain.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return err
	}

	event := &domain.Event{
		Name:  domain.EventScheduleTrigger,
		JobID: jobID,
		Data:  data,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return err
	}

	s.logger.Info("schedule fired",
		zap.String("schedule_id", schedule.ScheduleID.String()),
		zap.String("job_id", jobID.String()),
	)
	return nil
}
