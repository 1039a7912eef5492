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
	"go.uber.org/zap"
)

const (
	jobTable  = "jobs"
	jobFields = `id, customer_name, customer_phone, customer_email, address, city, zip, service_type, lead_id, salesperson_id,
		status, priority, latitude, longitude,
		assigned_technician_id, dispatcher_id, assigned_at, confirmed_at, en_route_at, arrived_at, started_at, completed_at, cancelled_at,
		arrival_lat, arrival_lng, arrival_verified, arrival_distance,
		labor_hours, labor_rate, labor_cost, materials_cost, travel_expense, equipment_cost, other_expenses, total_cost, total_revenue, profit,
		cancellation_reason, cancelled_by, version, created_at, updated_at`
)

type JobRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, job *entities.Job) error
	FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Job, error)
	// Update writes every mutable column, guarded by job.Version. On success job.Version
	// and job.UpdatedAt are refreshed; a stale version yields ErrConcurrentUpdate.
	Update(ctx context.Context, tx pgx.Tx, job *entities.Job) error
	List(ctx context.Context, filter dto.JobFilter) ([]entities.Job, uint64, error)
}

type jobRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewJobRepository(storage *pgxpool.Pool, logger *zap.Logger) JobRepositoryInterface {
	return &jobRepository{storage: storage, logger: logger}
}

func scanJob(row pgx.Row) (*entities.Job, error) {
	var j entities.Job
	err := row.Scan(
		&j.ID, &j.CustomerName, &j.CustomerPhone, &j.CustomerEmail, &j.Address, &j.City, &j.Zip, &j.ServiceType, &j.LeadID, &j.SalespersonID,
		&j.Status, &j.Priority, &j.Latitude, &j.Longitude,
		&j.AssignedTechnicianID, &j.DispatcherID, &j.AssignedAt, &j.ConfirmedAt, &j.EnRouteAt, &j.ArrivedAt, &j.StartedAt, &j.CompletedAt, &j.CancelledAt,
		&j.ArrivalLat, &j.ArrivalLng, &j.ArrivalVerified, &j.ArrivalDistance,
		&j.LaborHours, &j.LaborRate, &j.LaborCost, &j.MaterialsCost, &j.TravelExpense, &j.EquipmentCost, &j.OtherExpenses, &j.TotalCost, &j.TotalRevenue, &j.Profit,
		&j.CancellationReason, &j.CancelledBy, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobRepository) Create(ctx context.Context, tx pgx.Tx, job *entities.Job) error {
	query, args, err := psql.Insert(jobTable).
		Columns("id", "customer_name", "customer_phone", "customer_email", "address", "city", "zip", "service_type",
			"lead_id", "salesperson_id", "status", "priority", "latitude", "longitude", "version").
		Values(job.ID, job.CustomerName, job.CustomerPhone, job.CustomerEmail, job.Address, job.City, job.Zip, job.ServiceType,
			job.LeadID, job.SalespersonID, job.Status, job.Priority, job.Latitude, job.Longitude, 1).
		Suffix("RETURNING version, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build job insert: %w", err)
	}

	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&job.Version, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Job, error) {
	query, args, err := psql.Select(jobFields).From(jobTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job select: %w", err)
	}

	job, err := scanJob(pick(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrJobNotFound
		}
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}
	return job, nil
}

func (r *jobRepository) Update(ctx context.Context, tx pgx.Tx, job *entities.Job) error {
	query, args, err := psql.Update(jobTable).
		Set("status", job.Status).
		Set("priority", job.Priority).
		Set("latitude", job.Latitude).
		Set("longitude", job.Longitude).
		Set("assigned_technician_id", job.AssignedTechnicianID).
		Set("dispatcher_id", job.DispatcherID).
		Set("assigned_at", job.AssignedAt).
		Set("confirmed_at", job.ConfirmedAt).
		Set("en_route_at", job.EnRouteAt).
		Set("arrived_at", job.ArrivedAt).
		Set("started_at", job.StartedAt).
		Set("completed_at", job.CompletedAt).
		Set("cancelled_at", job.CancelledAt).
		Set("arrival_lat", job.ArrivalLat).
		Set("arrival_lng", job.ArrivalLng).
		Set("arrival_verified", job.ArrivalVerified).
		Set("arrival_distance", job.ArrivalDistance).
		Set("labor_hours", job.LaborHours).
		Set("labor_rate", job.LaborRate).
		Set("labor_cost", job.LaborCost).
		Set("materials_cost", job.MaterialsCost).
		Set("travel_expense", job.TravelExpense).
		Set("equipment_cost", job.EquipmentCost).
		Set("other_expenses", job.OtherExpenses).
		Set("total_cost", job.TotalCost).
		Set("total_revenue", job.TotalRevenue).
		Set("profit", job.Profit).
		Set("cancellation_reason", job.CancellationReason).
		Set("cancelled_by", job.CancelledBy).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": job.ID, "version": job.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build job update: %w", err)
	}

	err = pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&job.Version, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("job version conflict", zap.String("jobID", job.ID), zap.Int("version", job.Version))
			return apperrors.ErrConcurrentUpdate
		}
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return nil
}

func (r *jobRepository) List(ctx context.Context, filter dto.JobFilter) ([]entities.Job, uint64, error) {
	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.TechnicianID != "" {
		where = append(where, sq.Eq{"assigned_technician_id": filter.TechnicianID})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(jobTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build job count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	if total == 0 {
		return []entities.Job{}, 0, nil
	}

	builder := psql.Select(jobFields).From(jobTable).Where(where).OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build job list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]entities.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, rows.Err()
}
