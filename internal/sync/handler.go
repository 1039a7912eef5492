package sync

import (
	"context"
	"fmt"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/repositories"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/utils"
)

// HandlerInterface applies roster batches from the HR/payroll system. Each batch is one
// transaction: either every row lands or none does.
type HandlerInterface interface {
	ProcessTechnicians(ctx context.Context, items []dto.TechnicianRosterDTO) (*dto.SyncResultDTO, error)
	ProcessSalespeople(ctx context.Context, items []dto.SalespersonRosterDTO) (*dto.SyncResultDTO, error)
}

type DBHandler struct {
	txManager       repositories.TxManagerInterface
	techRepo        repositories.TechnicianRepositoryInterface
	salespersonRepo repositories.SalespersonRepositoryInterface
	logger          *zap.Logger
}

func NewDBHandler(
	txManager repositories.TxManagerInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	salespersonRepo repositories.SalespersonRepositoryInterface,
	logger *zap.Logger,
) HandlerInterface {
	return &DBHandler{
		txManager:       txManager,
		techRepo:        techRepo,
		salespersonRepo: salespersonRepo,
		logger:          logger,
	}
}

func (h *DBHandler) ProcessTechnicians(ctx context.Context, items []dto.TechnicianRosterDTO) (*dto.SyncResultDTO, error) {
	var res dto.SyncResultDTO

	err := h.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		res = dto.SyncResultDTO{Total: len(items)}

		for _, item := range items {
			phone := null.StringFromPtr(item.Phone)
			if phone.Valid {
				phone.String = utils.NormalizeUSPhoneNumber(phone.String)
			}
			entity := entities.Technician{
				ID:               item.ID,
				Name:             item.Name,
				Phone:            phone,
				Email:            null.StringFromPtr(item.Email),
				UserID:           null.StringFromPtr(item.UserID),
				Status:           constants.TechnicianStatusAvailable,
				MaxDailyJobs:     item.MaxDailyJobs,
				ApprovedJobTypes: item.ApprovedJobTypes,
				HourlyRate:       item.HourlyRate,
				CommissionRate:   item.CommissionRate,
			}

			_, err := h.techRepo.FindByID(ctx, tx, item.ID)
			if err != nil && !apperrors.IsNotFound(err) {
				return fmt.Errorf("lookup technician %s: %w", item.ID, err)
			}

			if err == nil {
				if err := h.techRepo.UpdateProfile(ctx, tx, &entity); err != nil {
					return fmt.Errorf("update technician %s: %w", item.ID, err)
				}
				res.Updated++
			} else {
				if err := h.techRepo.Create(ctx, tx, &entity); err != nil {
					return fmt.Errorf("create technician %s: %w", item.ID, err)
				}
				res.Created++
			}
		}
		return nil
	})
	if err != nil {
		h.logger.Error("technician roster sync failed", zap.Error(err))
		return nil, err
	}

	h.logger.Info("technician roster synced", zap.Int("total", res.Total), zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return &res, nil
}

func (h *DBHandler) ProcessSalespeople(ctx context.Context, items []dto.SalespersonRosterDTO) (*dto.SyncResultDTO, error) {
	var res dto.SyncResultDTO

	err := h.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		res = dto.SyncResultDTO{Total: len(items)}

		for _, item := range items {
			entity := entities.Salesperson{
				ID:             item.ID,
				Name:           item.Name,
				Email:          null.StringFromPtr(item.Email),
				CommissionRate: item.CommissionRate,
			}

			_, err := h.salespersonRepo.FindByID(ctx, tx, item.ID)
			if err != nil && !apperrors.IsNotFound(err) {
				return fmt.Errorf("lookup salesperson %s: %w", item.ID, err)
			}

			if err == nil {
				if err := h.salespersonRepo.Update(ctx, tx, &entity); err != nil {
					return fmt.Errorf("update salesperson %s: %w", item.ID, err)
				}
				res.Updated++
			} else {
				if err := h.salespersonRepo.Create(ctx, tx, &entity); err != nil {
					return fmt.Errorf("create salesperson %s: %w", item.ID, err)
				}
				res.Created++
			}
		}
		return nil
	})
	if err != nil {
		h.logger.Error("salesperson roster sync failed", zap.Error(err))
		return nil, err
	}

	h.logger.Info("salesperson roster synced", zap.Int("total", res.Total), zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return &res, nil
}
