package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/repositories"
)

type ReportServiceInterface interface {
	// WriteCommissionReport renders the filtered commissions as an XLSX workbook into w.
	WriteCommissionReport(ctx context.Context, filter dto.CommissionReportFilter, w io.Writer) error
}

type reportService struct {
	commissionRepo repositories.CommissionRepositoryInterface
	logger         *zap.Logger
}

func NewReportService(commissionRepo repositories.CommissionRepositoryInterface, logger *zap.Logger) ReportServiceInterface {
	return &reportService{
		commissionRepo: commissionRepo,
		logger:         logger,
	}
}

const commissionSheet = "Commissions"

var commissionHeaders = []interface{}{
	"Commission ID", "Job ID", "Salesperson ID", "Lead ID", "Status",
	"Revenue", "Labor", "Materials", "Travel", "Equipment", "Other",
	"Total Costs", "Net Profit", "Rate", "Commission", "Created At",
}

func (s *reportService) WriteCommissionReport(ctx context.Context, filter dto.CommissionReportFilter, w io.Writer) error {
	items, err := s.commissionRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("commission report: failed to load rows", zap.Error(err))
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", commissionSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(commissionSheet, "A1", &commissionHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(commissionSheet, 1, 1, style)
	}

	for i, c := range items {
		row := []interface{}{
			c.ID, c.JobID, c.SalespersonID, c.LeadID.String, c.Status,
			c.JobRevenue.InexactFloat64(), c.LaborCost.InexactFloat64(), c.MaterialsCost.InexactFloat64(),
			c.TravelExpense.InexactFloat64(), c.EquipmentCost.InexactFloat64(), c.OtherExpenses.InexactFloat64(),
			c.TotalCosts.InexactFloat64(), c.NetProfit.InexactFloat64(),
			c.CommissionRate.InexactFloat64(), c.CommissionAmount.InexactFloat64(),
			c.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(commissionSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	s.logger.Info("commission report generated", zap.Int("rows", len(items)))
	return f.Write(w)
}
