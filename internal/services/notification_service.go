package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"field-crm/internal/entities"
	"field-crm/pkg/constants"
	"field-crm/pkg/email"
	"field-crm/pkg/metrics"
	"field-crm/pkg/sms"
)

type NotificationServiceInterface interface {
	// Deliver sends a queued task over its channel. A non-nil error means the task may be
	// retried.
	Deliver(ctx context.Context, task *entities.NotificationTask) error
	SendDispatchEmail(ctx context.Context, tech *entities.Technician, d DispatchEmail) email.SendResult
	JobLink(jobID string) string
}

// DispatchEmail is the content of the "new job near you" message.
type DispatchEmail struct {
	JobID         string
	Address       string
	CustomerName  string
	ServiceType   string
	DistanceMiles float64
}

type notificationService struct {
	emailSender  email.Sender
	smsSender    sms.Sender
	frontendBase string
	metrics      *metrics.Collector
	logger       *zap.Logger
}

func NewNotificationService(
	emailSender email.Sender,
	smsSender sms.Sender,
	frontendBase string,
	collector *metrics.Collector,
	logger *zap.Logger,
) NotificationServiceInterface {
	return &notificationService{
		emailSender:  emailSender,
		smsSender:    smsSender,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		metrics:      collector,
		logger:       logger,
	}
}

var errUnknownChannel = errors.New("unknown notification channel")

func (s *notificationService) Deliver(ctx context.Context, task *entities.NotificationTask) error {
	var (
		ok     bool
		reason string
	)

	switch task.Channel {
	case constants.ContactChannelEmail:
		res := s.emailSender.Send(ctx, email.Message{
			To:      task.Recipient,
			Subject: task.Subject,
			HTML:    task.HTML,
			Text:    task.Body,
		})
		ok, reason = res.Success, res.Error
	case constants.ContactChannelSMS:
		res := s.smsSender.Send(ctx, task.Recipient, task.Body)
		ok, reason = res.Success, res.Error
	default:
		return fmt.Errorf("%w: %q", errUnknownChannel, task.Channel)
	}

	s.metrics.RecordNotification(task.Channel, ok)
	if !ok {
		return fmt.Errorf("%s delivery to %s failed: %s", task.Channel, task.Recipient, reason)
	}

	s.logger.Debug("notification delivered",
		zap.String("taskID", task.ID),
		zap.String("channel", task.Channel),
		zap.String("jobID", task.JobID),
	)
	return nil
}

func (s *notificationService) SendDispatchEmail(ctx context.Context, tech *entities.Technician, d DispatchEmail) email.SendResult {
	if !tech.Email.Valid || tech.Email.String == "" {
		return email.SendResult{Error: "technician has no email address"}
	}

	subject := "New job near you"
	if d.ServiceType != "" {
		subject = fmt.Sprintf("New %s job near you", d.ServiceType)
	}

	lines := []string{
		fmt.Sprintf("Hi %s,", tech.Name),
		"",
		"You are the closest available technician for a new job.",
		"Address: " + d.Address,
	}
	if d.CustomerName != "" {
		lines = append(lines, "Customer: "+d.CustomerName)
	}
	if d.ServiceType != "" {
		lines = append(lines, "Service: "+d.ServiceType)
	}
	lines = append(lines, fmt.Sprintf("Distance: %.1f miles", d.DistanceMiles))
	if d.JobID != "" {
		lines = append(lines, "", "Open the job: "+s.JobLink(d.JobID))
	}
	text := strings.Join(lines, "\n")

	res := s.emailSender.Send(ctx, email.Message{
		To:      tech.Email.String,
		Subject: subject,
		Text:    text,
		HTML:    "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>",
	})
	s.metrics.RecordNotification(constants.ContactChannelEmail, res.Success)
	return res
}

// JobLink is the technician-facing deep link for a job.
func (s *notificationService) JobLink(jobID string) string {
	return fmt.Sprintf("%s/tech/jobs/%s", s.frontendBase, jobID)
}
