package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/repositories"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/metrics"
)

// DefaultCommissionRate applies when the salesperson has no rate of their own.
var DefaultCommissionRate = decimal.RequireFromString("0.15")

type CommissionServiceInterface interface {
	// Calculate records the commission for a completed, profitable job. It returns nil
	// without error when the job does not qualify, and the existing record when one was
	// already calculated.
	Calculate(ctx context.Context, jobID, salespersonID string) (*entities.SalesCommission, error)
	ListByJob(ctx context.Context, jobID string) ([]entities.SalesCommission, error)
	List(ctx context.Context, filter dto.CommissionReportFilter) ([]entities.SalesCommission, error)
	UpdateStatus(ctx context.Context, id, status string) (*entities.SalesCommission, error)
}

type CommissionService struct {
	txManager       repositories.TxManagerInterface
	jobRepo         repositories.JobRepositoryInterface
	salespersonRepo repositories.SalespersonRepositoryInterface
	commissionRepo  repositories.CommissionRepositoryInterface
	defaultRate     decimal.Decimal
	metrics         *metrics.Collector
	logger          *zap.Logger
}

func NewCommissionService(
	txManager repositories.TxManagerInterface,
	jobRepo repositories.JobRepositoryInterface,
	salespersonRepo repositories.SalespersonRepositoryInterface,
	commissionRepo repositories.CommissionRepositoryInterface,
	defaultRate decimal.Decimal,
	collector *metrics.Collector,
	logger *zap.Logger,
) CommissionServiceInterface {
	if defaultRate.IsZero() {
		defaultRate = DefaultCommissionRate
	}
	return &CommissionService{
		txManager:       txManager,
		jobRepo:         jobRepo,
		salespersonRepo: salespersonRepo,
		commissionRepo:  commissionRepo,
		defaultRate:     defaultRate,
		metrics:         collector,
		logger:          logger,
	}
}

func (s *CommissionService) Calculate(ctx context.Context, jobID, salespersonID string) (*entities.SalesCommission, error) {
	var (
		result  *entities.SalesCommission
		created bool
	)

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		result, created = nil, false

		existing, err := s.commissionRepo.FindByJobAndSalesperson(ctx, tx, jobID, salespersonID)
		if err == nil {
			result = existing
			return nil
		}
		if !apperrors.IsNotFound(err) {
			return err
		}

		job, err := s.jobRepo.FindByID(ctx, tx, jobID)
		if apperrors.IsNotFound(err) {
			s.logger.Info("commission skipped: job not found", zap.String("jobID", jobID))
			return nil
		}
		if err != nil {
			return err
		}
		if job.Status != constants.JobStatusCompleted {
			s.logger.Info("commission skipped: job not completed", zap.String("jobID", jobID), zap.String("status", job.Status))
			return nil
		}
		if !job.TotalRevenue.Valid {
			s.logger.Info("commission skipped: job has no revenue", zap.String("jobID", jobID))
			return nil
		}

		person, err := s.salespersonRepo.FindByID(ctx, tx, salespersonID)
		if apperrors.IsNotFound(err) {
			s.logger.Info("commission skipped: salesperson not found", zap.String("salespersonID", salespersonID))
			return nil
		}
		if err != nil {
			return err
		}

		c := s.build(job, person)
		if !c.NetProfit.IsPositive() {
			s.logger.Info("commission skipped: job not profitable",
				zap.String("jobID", jobID),
				zap.String("netProfit", c.NetProfit.StringFixed(moneyPlaces)),
			)
			return nil
		}

		ok, err := s.commissionRepo.Create(ctx, tx, c)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race with a concurrent calculation; return its row.
			existing, err := s.commissionRepo.FindByJobAndSalesperson(ctx, tx, jobID, salespersonID)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}
		result, created = c, true
		return nil
	})
	if err != nil {
		s.logger.Error("commission calculation failed",
			zap.String("jobID", jobID),
			zap.String("salespersonID", salespersonID),
			zap.Error(err),
		)
		return nil, err
	}

	if created {
		s.metrics.RecordCommission()
		s.logger.Info("commission recorded",
			zap.String("jobID", jobID),
			zap.String("salespersonID", salespersonID),
			zap.String("amount", result.CommissionAmount.StringFixed(moneyPlaces)),
		)
	}
	return result, nil
}

func (s *CommissionService) build(job *entities.Job, person *entities.Salesperson) *entities.SalesCommission {
	labor := orZero(job.LaborCost)
	materials := orZero(job.MaterialsCost)
	travel := orZero(job.TravelExpense)
	equipment := orZero(job.EquipmentCost)
	other := orZero(job.OtherExpenses)

	total := labor.Add(materials).Add(travel).Add(equipment).Add(other).Round(moneyPlaces)
	revenue := job.TotalRevenue.Decimal.Round(moneyPlaces)
	net := revenue.Sub(total)

	rate := s.defaultRate
	if person.CommissionRate.Valid {
		rate = person.CommissionRate.Decimal
	}

	return &entities.SalesCommission{
		ID:               uuid.NewString(),
		SalespersonID:    person.ID,
		JobID:            job.ID,
		LeadID:           job.LeadID,
		JobRevenue:       revenue,
		LaborCost:        labor.Round(moneyPlaces),
		MaterialsCost:    materials.Round(moneyPlaces),
		TravelExpense:    travel.Round(moneyPlaces),
		EquipmentCost:    equipment.Round(moneyPlaces),
		OtherExpenses:    other.Round(moneyPlaces),
		TotalCosts:       total,
		NetProfit:        net,
		CommissionRate:   rate,
		CommissionAmount: net.Mul(rate).Round(moneyPlaces),
		Status:           constants.CommissionStatusPending,
	}
}

func (s *CommissionService) ListByJob(ctx context.Context, jobID string) ([]entities.SalesCommission, error) {
	if _, err := s.jobRepo.FindByID(ctx, nil, jobID); err != nil {
		return nil, err
	}
	return s.commissionRepo.FindByJobID(ctx, jobID)
}

func (s *CommissionService) List(ctx context.Context, filter dto.CommissionReportFilter) ([]entities.SalesCommission, error) {
	return s.commissionRepo.List(ctx, filter)
}

var commissionFlow = map[string]string{
	constants.CommissionStatusPending:  constants.CommissionStatusApproved,
	constants.CommissionStatusApproved: constants.CommissionStatusPaid,
}

// UpdateStatus moves a commission one step along pending -> approved -> paid.
func (s *CommissionService) UpdateStatus(ctx context.Context, id, status string) (*entities.SalesCommission, error) {
	if !constants.IsCommissionStatus(status) {
		return nil, apperrors.NewInvalidInputError("unknown commission status %q", status)
	}

	var result *entities.SalesCommission
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		c, err := s.commissionRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if commissionFlow[c.Status] != status {
			return apperrors.NewInvalidTransitionError(c.Status, status)
		}
		if err := s.commissionRepo.UpdateStatus(ctx, tx, id, status); err != nil {
			return err
		}
		c.Status = status
		result = c
		return nil
	})
	if err != nil {
		s.logger.Warn("commission status update failed", zap.String("commissionID", id), zap.String("status", status), zap.Error(err))
		return nil, err
	}

	s.logger.Info("commission status updated", zap.String("commissionID", id), zap.String("status", status))
	return result, nil
}
