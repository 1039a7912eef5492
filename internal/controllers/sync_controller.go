package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/sync"
	"field-crm/pkg/utils"
)

type SyncController struct {
	handler sync.HandlerInterface
	logger  *zap.Logger
}

func NewSyncController(handler sync.HandlerInterface, logger *zap.Logger) *SyncController {
	return &SyncController{
		handler: handler,
		logger:  logger.Named("sync_controller"),
	}
}

func (c *SyncController) SyncTechnicians(ctx echo.Context) error {
	var payload dto.TechnicianRosterBatchDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		c.logger.Warn("rejected technician roster batch", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.handler.ProcessTechnicians(ctx.Request().Context(), payload.Items)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Technician roster synced", http.StatusOK)
}

func (c *SyncController) SyncSalespeople(ctx echo.Context) error {
	var payload dto.SalespersonRosterBatchDTO
	if err := bindAndValidate(ctx, &payload); err != nil {
		c.logger.Warn("rejected salesperson roster batch", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.handler.ProcessSalespeople(ctx.Request().Context(), payload.Items)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Salesperson roster synced", http.StatusOK)
}
