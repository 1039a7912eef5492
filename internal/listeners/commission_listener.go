package listeners

import (
	"context"

	"go.uber.org/zap"

	"field-crm/internal/events"
	"field-crm/internal/services"
	"field-crm/pkg/eventbus"
)

// CommissionListener calculates the salesperson's commission once a job completes.
type CommissionListener struct {
	commissionService services.CommissionServiceInterface
	logger            *zap.Logger
}

func NewCommissionListener(commissionService services.CommissionServiceInterface, logger *zap.Logger) *CommissionListener {
	return &CommissionListener{
		commissionService: commissionService,
		logger:            logger,
	}
}

func (l *CommissionListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.JobTransitionedEventName, l.handleJobTransitioned)
}

func (l *CommissionListener) handleJobTransitioned(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.JobTransitionedEvent)
	if !ok || e.Transition != services.TransitionComplete || !e.Job.SalespersonID.Valid {
		return nil
	}

	c, err := l.commissionService.Calculate(ctx, e.Job.ID, e.Job.SalespersonID.String)
	if err != nil {
		return err
	}
	if c == nil {
		l.logger.Info("completed job does not qualify for commission", zap.String("jobID", e.Job.ID))
	}
	return nil
}
