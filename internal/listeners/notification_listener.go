package listeners

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-crm/internal/entities"
	"field-crm/internal/events"
	"field-crm/internal/repositories"
	"field-crm/internal/services"
	"field-crm/pkg/constants"
	"field-crm/pkg/eventbus"
	"field-crm/pkg/utils"
)

// NotificationListener turns committed lifecycle changes into queued messages. Delivery
// happens later in the notification worker, so a slow provider never holds a transition.
type NotificationListener struct {
	queue    repositories.NotificationQueueInterface
	notifier services.NotificationServiceInterface
	now      func() time.Time
	logger   *zap.Logger
}

func NewNotificationListener(
	queue repositories.NotificationQueueInterface,
	notifier services.NotificationServiceInterface,
	logger *zap.Logger,
) *NotificationListener {
	return &NotificationListener{
		queue:    queue,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.JobTransitionedEventName, l.handleJobTransitioned)
	l.logger.Info("NotificationListener subscribed", zap.String("event", events.JobTransitionedEventName))
}

func (l *NotificationListener) handleJobTransitioned(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.JobTransitionedEvent)
	if !ok {
		return nil
	}

	for _, task := range l.tasksFor(e) {
		if err := l.queue.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("enqueue %s notification for job %s: %w", task.Channel, e.Job.ID, err)
		}
		l.logger.Info("notification queued",
			zap.String("jobID", e.Job.ID),
			zap.String("transition", e.Transition),
			zap.String("channel", task.Channel),
		)
	}
	return nil
}

func (l *NotificationListener) tasksFor(e events.JobTransitionedEvent) []*entities.NotificationTask {
	job := e.Job
	switch e.Transition {
	case services.TransitionAssign:
		tech := e.Technician
		// Only technicians with a linked user account get the app link.
		if tech == nil || !tech.UserID.Valid {
			return nil
		}
		link := l.notifier.JobLink(job.ID)
		body := fmt.Sprintf("New job assigned: %s at %s. Open: %s", job.ServiceType, job.FullAddress(), link)
		if tech.Email.Valid && tech.Email.String != "" {
			t := l.task(constants.ContactChannelEmail, tech.Email.String, job.ID, body)
			t.Subject = "New job assigned: " + job.ServiceType
			t.HTML = fmt.Sprintf(`<p>You have a new %s job at %s.</p><p><a href="%s">Open job</a></p>`,
				job.ServiceType, job.FullAddress(), link)
			t.TechnicianID = tech.ID
			return []*entities.NotificationTask{t}
		}
		if tech.Phone.Valid && tech.Phone.String != "" {
			t := l.task(constants.ContactChannelSMS, utils.NormalizeUSPhoneNumber(tech.Phone.String), job.ID, body)
			t.TechnicianID = tech.ID
			return []*entities.NotificationTask{t}
		}
	case services.TransitionEnRoute:
		if !job.CustomerPhone.Valid || job.CustomerPhone.String == "" {
			return nil
		}
		name := "Your technician"
		if e.Technician != nil {
			name = e.Technician.Name
		}
		body := fmt.Sprintf("Hi %s, %s is on the way to %s.", job.CustomerName, name, job.Address)
		return []*entities.NotificationTask{l.task(constants.ContactChannelSMS, job.CustomerPhone.String, job.ID, body)}
	case services.TransitionCancel:
		if !job.CustomerPhone.Valid || job.CustomerPhone.String == "" {
			return nil
		}
		body := fmt.Sprintf("Hi %s, your %s appointment at %s has been cancelled. Reply to reschedule.",
			job.CustomerName, job.ServiceType, job.Address)
		return []*entities.NotificationTask{l.task(constants.ContactChannelSMS, job.CustomerPhone.String, job.ID, body)}
	}
	return nil
}

func (l *NotificationListener) task(channel, recipient, jobID, body string) *entities.NotificationTask {
	now := l.now().UTC()
	return &entities.NotificationTask{
		ID:        uuid.NewString(),
		Channel:   channel,
		Recipient: recipient,
		Body:      body,
		JobID:     jobID,
		NotBefore: now,
		CreatedAt: now,
	}
}
