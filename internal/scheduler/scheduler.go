package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultDailyResetSpec fires at midnight server time.
const DefaultDailyResetSpec = "0 0 * * *"

// DailyCounterResetter is implemented by the technician service.
type DailyCounterResetter interface {
	ResetDailyCounters(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		timeout: time.Minute,
		logger:  logger,
	}
}

// RegisterDailyReset schedules the completedJobsToday reset on spec.
func (s *Scheduler) RegisterDailyReset(spec string, resetter DailyCounterResetter) error {
	if spec == "" {
		spec = DefaultDailyResetSpec
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := resetter.ResetDailyCounters(ctx); err != nil {
			s.logger.Error("scheduled daily reset failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid daily reset spec %q: %w", spec, err)
	}
	s.logger.Info("daily reset scheduled", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
