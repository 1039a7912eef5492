package services

import (
	"context"

	"go.uber.org/zap"

	"field-crm/internal/entities"
	"field-crm/internal/repositories"
)

type TimelineServiceInterface interface {
	// GetTimeline returns a job's events oldest first.
	GetTimeline(ctx context.Context, jobID string) ([]entities.JobTimelineEvent, error)
}

type timelineService struct {
	jobRepo      repositories.JobRepositoryInterface
	timelineRepo repositories.TimelineRepositoryInterface
	logger       *zap.Logger
}

func NewTimelineService(
	jobRepo repositories.JobRepositoryInterface,
	timelineRepo repositories.TimelineRepositoryInterface,
	logger *zap.Logger,
) TimelineServiceInterface {
	return &timelineService{
		jobRepo:      jobRepo,
		timelineRepo: timelineRepo,
		logger:       logger,
	}
}

func (s *timelineService) GetTimeline(ctx context.Context, jobID string) ([]entities.JobTimelineEvent, error) {
	if _, err := s.jobRepo.FindByID(ctx, nil, jobID); err != nil {
		return nil, err
	}
	events, err := s.timelineRepo.FindByJobID(ctx, nil, jobID)
	if err != nil {
		s.logger.Error("failed to load job timeline", zap.String("jobID", jobID), zap.Error(err))
		return nil, err
	}
	return events, nil
}
