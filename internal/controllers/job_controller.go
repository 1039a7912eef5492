package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/services"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/utils"
)

type JobController struct {
	jobService      services.JobLifecycleServiceInterface
	timelineService services.TimelineServiceInterface
	logger          *zap.Logger
}

func NewJobController(
	jobService services.JobLifecycleServiceInterface,
	timelineService services.TimelineServiceInterface,
	logger *zap.Logger,
) *JobController {
	return &JobController{
		jobService:      jobService,
		timelineService: timelineService,
		logger:          logger,
	}
}

func toJobResponse(job *entities.Job) dto.JobResponseDTO {
	allowed := services.AllowedTransitions(job.Status)
	if allowed == nil {
		allowed = []string{}
	}
	return dto.JobResponseDTO{Job: *job, AllowedTransitions: allowed}
}

func (c *JobController) CreateJob(ctx echo.Context) error {
	var req dto.CreateJobDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	job, err := c.jobService.Create(ctx.Request().Context(), req)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, toJobResponse(job), "Job created", http.StatusCreated)
}

func (c *JobController) GetJob(ctx echo.Context) error {
	job, err := c.jobService.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, toJobResponse(job), "Job found", http.StatusOK)
}

func (c *JobController) ListJobs(ctx echo.Context) error {
	query := ctx.Request().URL.Query()
	filter := dto.JobFilter{
		Status:       query.Get("status"),
		TechnicianID: query.Get("technician_id"),
	}
	if filter.Status != "" && !constants.IsJobStatus(filter.Status) {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "unknown job status", apperrors.ErrBadRequest,
				map[string]interface{}{"status": filter.Status}),
			c.logger,
		)
	}
	filter.Limit, filter.Offset = utils.ParsePaginationParams(query)

	jobs, total, err := c.jobService.List(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if jobs == nil {
		jobs = []entities.Job{}
	}
	return utils.SuccessResponse(ctx, dto.JobListResponseDTO{List: jobs, TotalCount: total}, "Jobs listed", http.StatusOK)
}

func (c *JobController) Assign(ctx echo.Context) error {
	var req dto.AssignJobDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Assign(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Job assigned")
}

func (c *JobController) Confirm(ctx echo.Context) error {
	var req dto.TransitionDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Confirm(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Job confirmed")
}

func (c *JobController) EnRoute(ctx echo.Context) error {
	var req dto.TransitionDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.EnRoute(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Technician en route")
}

func (c *JobController) Arrive(ctx echo.Context) error {
	var req dto.ArriveJobDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Arrive(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Technician arrived")
}

func (c *JobController) Start(ctx echo.Context) error {
	var req dto.TransitionDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Start(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Work started")
}

func (c *JobController) Complete(ctx echo.Context) error {
	var req dto.CompleteJobDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Complete(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Job completed")
}

func (c *JobController) Cancel(ctx echo.Context) error {
	var req dto.CancelJobDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.Cancel(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Job cancelled")
}

func (c *JobController) UpdateCosts(ctx echo.Context) error {
	var req dto.UpdateCostsDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	job, err := c.jobService.UpdateCosts(ctx.Request().Context(), ctx.Param("id"), req)
	return c.respond(ctx, job, err, "Costs updated")
}

func (c *JobController) QuoteSent(ctx echo.Context) error {
	var req dto.QuoteSentDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	event, err := c.jobService.RecordQuoteSent(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, event, "Quote recorded", http.StatusCreated)
}

func (c *JobController) Timeline(ctx echo.Context) error {
	events, err := c.timelineService.GetTimeline(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if events == nil {
		events = []entities.JobTimelineEvent{}
	}
	return utils.SuccessResponse(ctx, events, "Timeline loaded", http.StatusOK)
}

func (c *JobController) respond(ctx echo.Context, job *entities.Job, err error, message string) error {
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, toJobResponse(job), message, http.StatusOK)
}
