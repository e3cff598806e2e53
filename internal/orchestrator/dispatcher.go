package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/events"
	"github.com/pressmill/pressmill/internal/metrics"
	"github.com/pressmill/pressmill/internal/repository"
)

const defaultMaxAttempts = 3

// defaultBackoff is the delay before each retry attempt.
var defaultBackoff = []time.Duration{1 * time.Minute, 5 * time.Minute, 15 * time.Minute}

// Dispatcher consumes trigger events and drives jobs through
// pending → processing → completed | failed with bounded retry.
type Dispatcher struct {
	registry    *Registry
	jobs        repository.JobRepository
	idem        repository.IdempotencyStore
	publisher   events.Publisher
	logger      *zap.Logger
	backoff     []time.Duration
	maxAttempts int

	wg sync.WaitGroup
}

// DispatcherOption tweaks dispatcher behavior, mostly for tests.
type DispatcherOption func(*Dispatcher)

// WithBackoff overrides the retry delay table.
func WithBackoff(delays []time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.backoff = delays }
}

// WithMaxAttempts overrides the attempt budget per event.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxAttempts = n }
}

// NewDispatcher creates a dispatcher over a built registry.
func NewDispatcher(
	registry *Registry,
	jobs repository.JobRepository,
	idem repository.IdempotencyStore,
	publisher events.Publisher,
	logger *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		jobs:        jobs,
		idem:        idem,
		publisher:   publisher,
		logger:      logger,
		backoff:     defaultBackoff,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool reading from the event channel. Call Stop
// to wait for in-flight steps to finish.
func (d *Dispatcher) Start(ctx context.Context, in <-chan *events.EventMessage, poolSize int) {
	d.logger.Info("starting dispatcher",
		zap.Int("pool_size", poolSize),
		zap.Strings("events", d.registry.EventNames()),
	)

	for i := 0; i < poolSize; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i, in)
	}
}

// Stop waits for all workers to finish their current events and exit.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int, in <-chan *events.EventMessage) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}

			metrics.WorkersActive.Inc()
			err := d.Handle(ctx, msg.Event)
			metrics.WorkersActive.Dec()

			if err != nil {
				d.logger.Error("event handling failed",
					zap.Int("worker_id", id),
					zap.String("event", msg.Event.Name),
					zap.String("job_id", msg.Event.JobID.String()),
					zap.Error(err),
				)
				// Infrastructure failure: nack without requeue → DLQ.
				// Requeueing a deterministic failure would loop forever.
				if nackErr := msg.Nack(false); nackErr != nil {
					d.logger.Error("failed to NACK event", zap.Error(nackErr))
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				d.logger.Error("failed to ACK event", zap.Error(ackErr))
			}
		}
	}
}

// Handle runs one event end to end: idempotency lock, step execution with
// retry/backoff, job state transitions, follow-on emission. It returns an
// error only for infrastructure faults (store or broker unavailable);
// step-level failure is absorbed into the job's terminal state.
func (d *Dispatcher) Handle(ctx context.Context, event *domain.Event) error {
	step, ok := d.registry.Lookup(event.Name)
	if !ok {
		return fmt.Errorf("dispatcher: no step registered for event %q", event.Name)
	}

	lockKey := event.Name + ":" + event.JobID.String()
	acquired, err := d.idem.AcquireLock(ctx, lockKey)
	if err != nil {
		return fmt.Errorf("dispatcher: acquire lock: %w", err)
	}
	if !acquired {
		d.logger.Info("duplicate event delivery, skipping",
			zap.String("event", event.Name),
			zap.String("job_id", event.JobID.String()),
		)
		return nil
	}
	defer func() {
		_ = d.idem.ReleaseLock(ctx, lockKey)
	}()

	// Redelivery after a crash can arrive for a job that already finished.
	if job, err := d.jobs.GetByID(ctx, event.JobID); err == nil && job.Status.IsTerminal() {
		d.logger.Info("event for terminal job, skipping",
			zap.String("event", event.Name),
			zap.String("job_id", event.JobID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	} else if err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		return fmt.Errorf("dispatcher: load job: %w", err)
	}

	if err := d.jobs.UpdateStatus(ctx, event.JobID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("dispatcher: mark processing: %w", err)
	}

	start := time.Now()
	result := d.runWithRetry(ctx, step, event)
	metrics.JobDuration.WithLabelValues(string(step.Kind)).Observe(time.Since(start).Seconds())

	if !result.OK {
		metrics.JobsTotal.WithLabelValues(string(step.Kind), "failed").Inc()
		if step.OnFailure != nil {
			step.OnFailure(ctx, event, result)
		}
		if err := d.jobs.UpdateStatus(ctx, event.JobID, domain.JobFailed, result.Message); err != nil {
			return fmt.Errorf("dispatcher: mark failed: %w", err)
		}
		d.logger.Warn("job failed terminally",
			zap.String("event", event.Name),
			zap.String("job_id", event.JobID.String()),
			zap.String("code", string(result.Code)),
			zap.String("message", result.Message),
		)
		return nil
	}

	if err := d.jobs.UpdateStatus(ctx, event.JobID, domain.JobCompleted, ""); err != nil {
		return fmt.Errorf("dispatcher: mark completed: %w", err)
	}
	metrics.JobsTotal.WithLabelValues(string(step.Kind), "completed").Inc()

	for _, followOn := range result.FollowOn {
		if err := d.emit(ctx, followOn); err != nil {
			return fmt.Errorf("dispatcher: emit %s: %w", followOn.Name, err)
		}
	}

	return nil
}

// runWithRetry executes the step with bounded exponential backoff. A
// non-retryable failure code short-circuits; otherwise the step gets
// maxAttempts tries with the configured delay before each retry.
func (d *Dispatcher) runWithRetry(ctx context.Context, step Step, event *domain.Event) *StepResult {
	var result *StepResult
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := d.backoff[min(attempt-1, len(d.backoff)-1)]
			d.logger.Info("retrying step",
				zap.String("event", event.Name),
				zap.String("job_id", event.JobID.String()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			metrics.StepRetries.WithLabelValues(string(step.Kind)).Inc()
			if _, err := d.jobs.IncrementRetry(ctx, event.JobID); err != nil {
				d.logger.Error("failed to record retry", zap.Error(err))
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return stepFail(domain.CodeUnknown, "shutdown during retry wait: "+ctx.Err().Error())
			}
		}

		result = step.Run(ctx, event)
		if result.OK {
			return result
		}
		if !result.Code.Retryable() {
			d.logger.Warn("non-retryable step failure",
				zap.String("event", event.Name),
				zap.String("code", string(result.Code)),
			)
			return result
		}
	}
	return result
}

// emit persists a chained job for the follow-on event, then publishes it.
// The job exists before the event so a consumer can never observe an event
// pointing at a missing job.
func (d *Dispatcher) emit(ctx context.Context, event *domain.Event) error {
	kind, ok := domain.KindForEvent(event.Name)
	if !ok {
		return fmt.Errorf("unknown event name %q", event.Name)
	}

	if event.JobID == uuid.Nil {
		jobID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate job id: %w", err)
		}
		event.JobID = jobID
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:     event.JobID,
		Kind:      kind,
		Payload:   event.Data,
		Status:    domain.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create chained job: %w", err)
	}

	if err := d.publisher.Publish(ctx, event); err != nil {
		_ = d.jobs.UpdateStatus(ctx, event.JobID, domain.JobFailed, "event publish failed")
		return err
	}

	metrics.EventsEmitted.WithLabelValues(event.Name).Inc()
	return nil
}
