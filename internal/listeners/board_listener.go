package listeners

import (
	"context"

	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/events"
	"field-crm/internal/services"
	"field-crm/pkg/eventbus"
)

const (
	BoardJobUpdated  = "job.updated"
	BoardJobAssigned = "job.assigned"
)

type BoardPublisher interface {
	Broadcast(messageType string, payload interface{}) error
	SendToActor(actorID, messageType string, payload interface{}) error
}

// BoardListener mirrors committed transitions onto the live dispatch board.
type BoardListener struct {
	board  BoardPublisher
	logger *zap.Logger
}

func NewBoardListener(board BoardPublisher, logger *zap.Logger) *BoardListener {
	return &BoardListener{board: board, logger: logger}
}

func (l *BoardListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.JobTransitionedEventName, l.handleJobTransitioned)
}

func (l *BoardListener) handleJobTransitioned(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.JobTransitionedEvent)
	if !ok {
		return nil
	}

	update := dto.JobBoardUpdateDTO{
		JobID:                e.Job.ID,
		Status:               e.Job.Status,
		Transition:           e.Transition,
		ActorID:              e.ActorID,
		AssignedTechnicianID: e.Job.AssignedTechnicianID.Ptr(),
		AllowedTransitions:   services.AllowedTransitions(e.Job.Status),
		OccurredAt:           e.Timeline.CreatedAt,
	}
	if err := l.board.Broadcast(BoardJobUpdated, update); err != nil {
		return err
	}

	// The technician's own app session hears about new work directly.
	if e.Transition == services.TransitionAssign && e.Technician != nil && e.Technician.UserID.Valid {
		if err := l.board.SendToActor(e.Technician.UserID.String, BoardJobAssigned, update); err != nil {
			return err
		}
	}
	l.logger.Debug("board updated", zap.String("jobID", e.Job.ID), zap.String("transition", e.Transition))
	return nil
}
