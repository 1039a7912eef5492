package repositories

import (
	"context"
	"errors"
	"fmt"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	apperrors "field-crm/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	commissionTable  = "sales_commissions"
	commissionFields = `id, salesperson_id, job_id, lead_id, job_revenue, labor_cost, materials_cost, travel_expense,
		equipment_cost, other_expenses, total_costs, net_profit, commission_rate, commission_amount, status, created_at, updated_at`
)

type CommissionRepositoryInterface interface {
	// Create inserts c unless a record for the same job and salesperson exists.
	// It reports whether a row was written.
	Create(ctx context.Context, tx pgx.Tx, c *entities.SalesCommission) (bool, error)
	FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.SalesCommission, error)
	FindByJobAndSalesperson(ctx context.Context, tx pgx.Tx, jobID, salespersonID string) (*entities.SalesCommission, error)
	FindByJobID(ctx context.Context, jobID string) ([]entities.SalesCommission, error)
	List(ctx context.Context, filter dto.CommissionReportFilter) ([]entities.SalesCommission, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id, status string) error
}

type commissionRepository struct {
	storage *pgxpool.Pool
}

func NewCommissionRepository(storage *pgxpool.Pool) CommissionRepositoryInterface {
	return &commissionRepository{storage: storage}
}

func scanCommission(row pgx.Row) (*entities.SalesCommission, error) {
	var c entities.SalesCommission
	err := row.Scan(&c.ID, &c.SalespersonID, &c.JobID, &c.LeadID, &c.JobRevenue, &c.LaborCost, &c.MaterialsCost, &c.TravelExpense,
		&c.EquipmentCost, &c.OtherExpenses, &c.TotalCosts, &c.NetProfit, &c.CommissionRate, &c.CommissionAmount, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commissionRepository) Create(ctx context.Context, tx pgx.Tx, c *entities.SalesCommission) (bool, error) {
	query, args, err := psql.Insert(commissionTable).
		Columns("id", "salesperson_id", "job_id", "lead_id", "job_revenue", "labor_cost", "materials_cost", "travel_expense",
			"equipment_cost", "other_expenses", "total_costs", "net_profit", "commission_rate", "commission_amount", "status").
		Values(c.ID, c.SalespersonID, c.JobID, c.LeadID, c.JobRevenue, c.LaborCost, c.MaterialsCost, c.TravelExpense,
			c.EquipmentCost, c.OtherExpenses, c.TotalCosts, c.NetProfit, c.CommissionRate, c.CommissionAmount, c.Status).
		Suffix("ON CONFLICT (job_id, salesperson_id) DO NOTHING RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build commission insert: %w", err)
	}

	err = pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert commission: %w", err)
	}
	return true, nil
}

func (r *commissionRepository) findOne(ctx context.Context, q Querier, where sq.Eq) (*entities.SalesCommission, error) {
	query, args, err := psql.Select(commissionFields).From(commissionTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build commission select: %w", err)
	}
	c, err := scanCommission(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommissionNotFound
		}
		return nil, fmt.Errorf("select commission: %w", err)
	}
	return c, nil
}

func (r *commissionRepository) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.SalesCommission, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"id": id})
}

func (r *commissionRepository) FindByJobAndSalesperson(ctx context.Context, tx pgx.Tx, jobID, salespersonID string) (*entities.SalesCommission, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"job_id": jobID, "salesperson_id": salespersonID})
}

func (r *commissionRepository) FindByJobID(ctx context.Context, jobID string) ([]entities.SalesCommission, error) {
	return r.list(ctx, sq.Eq{"job_id": jobID})
}

func (r *commissionRepository) List(ctx context.Context, filter dto.CommissionReportFilter) ([]entities.SalesCommission, error) {
	where := sq.Eq{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.SalespersonID != "" {
		where["salesperson_id"] = filter.SalespersonID
	}
	return r.list(ctx, where)
}

func (r *commissionRepository) list(ctx context.Context, where sq.Eq) ([]entities.SalesCommission, error) {
	query, args, err := psql.Select(commissionFields).From(commissionTable).Where(where).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build commission list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	result := make([]entities.SalesCommission, 0)
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *commissionRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id, status string) error {
	query, args, err := psql.Update(commissionTable).
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build commission status update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update commission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCommissionNotFound
	}
	return nil
}
