package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"field-crm/internal/entities"
	"field-crm/internal/repositories"
	"field-crm/internal/services"
	"field-crm/pkg/config"
)

// NotificationWorker drains the notification queue. A failed delivery is rescheduled with
// linear backoff until MaxAttempts, then moved to the dead-letter list.
type NotificationWorker struct {
	queue       repositories.NotificationQueueInterface
	notifier    services.NotificationServiceInterface
	maxAttempts int
	backoff     time.Duration
	pollTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewNotificationWorker(
	queue repositories.NotificationQueueInterface,
	notifier services.NotificationServiceInterface,
	cfg config.NotificationConfig,
	logger *zap.Logger,
) *NotificationWorker {
	w := &NotificationWorker{
		queue:       queue,
		notifier:    notifier,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		pollTimeout: cfg.PollTimeout,
		now:         time.Now,
		logger:      logger,
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = 5
	}
	if w.backoff <= 0 {
		w.backoff = 30 * time.Second
	}
	if w.pollTimeout <= 0 {
		w.pollTimeout = 5 * time.Second
	}
	return w
}

// Run blocks until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	w.logger.Info("notification worker started")
	defer w.logger.Info("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := w.queue.PromoteDue(ctx, w.now()); err != nil && ctx.Err() == nil {
			w.logger.Warn("failed to promote delayed notifications", zap.Error(err))
		}

		task, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue notification", zap.Error(err))
			w.pause(ctx)
			continue
		}
		if task == nil {
			continue
		}

		w.Process(ctx, task)
	}
}

// Process delivers one task and decides its fate on failure.
func (w *NotificationWorker) Process(ctx context.Context, task *entities.NotificationTask) {
	err := w.notifier.Deliver(ctx, task)
	if err == nil {
		return
	}

	task.Attempts++
	task.LastError = err.Error()
	fields := []zap.Field{
		zap.String("taskID", task.ID),
		zap.String("channel", task.Channel),
		zap.String("jobID", task.JobID),
		zap.Int("attempts", task.Attempts),
		zap.Error(err),
	}

	if task.Attempts >= w.maxAttempts {
		w.logger.Error("notification dead-lettered", fields...)
		if err := w.queue.DeadLetter(ctx, task); err != nil {
			w.logger.Error("failed to dead-letter notification", zap.String("taskID", task.ID), zap.Error(err))
		}
		return
	}

	at := w.now().Add(time.Duration(task.Attempts) * w.backoff)
	w.logger.Warn("notification delivery failed, retry scheduled", append(fields, zap.Time("retryAt", at))...)
	if err := w.queue.Schedule(ctx, task, at); err != nil {
		w.logger.Error("failed to reschedule notification", zap.String("taskID", task.ID), zap.Error(err))
	}
}

func (w *NotificationWorker) pause(ctx context.Context) {
	t := time.NewTimer(time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
