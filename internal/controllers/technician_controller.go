package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/services"
	"field-crm/pkg/utils"
)

type TechnicianController struct {
	techService     services.TechnicianServiceInterface
	dispatchService services.DispatchServiceInterface
	logger          *zap.Logger
}

func NewTechnicianController(
	techService services.TechnicianServiceInterface,
	dispatchService services.DispatchServiceInterface,
	logger *zap.Logger,
) *TechnicianController {
	return &TechnicianController{
		techService:     techService,
		dispatchService: dispatchService,
		logger:          logger,
	}
}

func (c *TechnicianController) GetTechnician(ctx echo.Context) error {
	tech, err := c.techService.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, tech, "Technician found", http.StatusOK)
}

func (c *TechnicianController) ListAvailable(ctx echo.Context) error {
	techs, err := c.techService.ListAvailable(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if techs == nil {
		techs = []entities.Technician{}
	}
	return utils.SuccessResponse(ctx, techs, "Available technicians", http.StatusOK)
}

func (c *TechnicianController) RecordLocation(ctx echo.Context) error {
	var req dto.RecordLocationDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	loc, err := c.techService.RecordLocation(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, loc, "Location recorded", http.StatusCreated)
}

func (c *TechnicianController) LatestLocation(ctx echo.Context) error {
	loc, err := c.techService.LatestLocation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, loc, "Latest location", http.StatusOK)
}

// Dispatch answers 200 for both outcomes; the body's success flag tells them apart.
func (c *TechnicianController) Dispatch(ctx echo.Context) error {
	var req dto.DispatchDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.dispatchService.DispatchToClosest(ctx.Request().Context(), req)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	message := "Technician dispatched"
	if !res.Success {
		message = res.Error
	}
	return utils.SuccessResponse(ctx, res, message, http.StatusOK)
}
