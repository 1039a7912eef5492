package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/services"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CommissionController struct {
	commissionService services.CommissionServiceInterface
	reportService     services.ReportServiceInterface
	logger            *zap.Logger
}

func NewCommissionController(
	commissionService services.CommissionServiceInterface,
	reportService services.ReportServiceInterface,
	logger *zap.Logger,
) *CommissionController {
	return &CommissionController{
		commissionService: commissionService,
		reportService:     reportService,
		logger:            logger,
	}
}

func (c *CommissionController) Calculate(ctx echo.Context) error {
	var req dto.CalculateCommissionDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	commission, err := c.commissionService.Calculate(ctx.Request().Context(), ctx.Param("id"), req.SalespersonID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res := dto.CommissionResultDTO{Calculated: commission != nil, Commission: commission}
	message := "Commission calculated"
	if commission == nil {
		message = "Job does not qualify for a commission"
	}
	return utils.SuccessResponse(ctx, res, message, http.StatusOK)
}

func (c *CommissionController) ListByJob(ctx echo.Context) error {
	list, err := c.commissionService.ListByJob(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if list == nil {
		list = []entities.SalesCommission{}
	}
	return utils.SuccessResponse(ctx, list, "Commissions listed", http.StatusOK)
}

func (c *CommissionController) UpdateStatus(ctx echo.Context) error {
	var req dto.UpdateCommissionStatusDTO
	if err := bindAndValidate(ctx, &req); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	commission, err := c.commissionService.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), req.Status)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, commission, "Commission status updated", http.StatusOK)
}

func (c *CommissionController) ExportXLSX(ctx echo.Context) error {
	query := ctx.Request().URL.Query()
	filter := dto.CommissionReportFilter{
		Status:        query.Get("status"),
		SalespersonID: query.Get("salesperson_id"),
	}
	if filter.Status != "" && !constants.IsCommissionStatus(filter.Status) {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "unknown commission status", apperrors.ErrBadRequest,
				map[string]interface{}{"status": filter.Status}),
			c.logger,
		)
	}

	var buf bytes.Buffer
	if err := c.reportService.WriteCommissionReport(ctx.Request().Context(), filter, &buf); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	fileName := fmt.Sprintf("commissions_%s.xlsx", time.Now().Format("20060102_150405"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
