package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"field-crm/internal/entities"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	technicianTable  = "technicians"
	technicianFields = `id, name, phone, email, user_id, status, current_job_id, completed_jobs_today, max_daily_jobs,
		approved_job_types, hourly_rate, commission_rate, last_location_lat, last_location_lng, last_location_update,
		created_at, updated_at`
)

type TechnicianRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, t *entities.Technician) error
	FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error)
	// UpdateProfile rewrites roster fields only; status, claim and counters are untouched.
	UpdateProfile(ctx context.Context, tx pgx.Tx, t *entities.Technician) error
	// ListAvailable returns technicians with status available in a stable order.
	ListAvailable(ctx context.Context, tx pgx.Tx) ([]entities.Technician, error)
	// Claim marks the technician busy with jobID if they are available or already hold
	// jobID. It reports false when someone else got there first.
	Claim(ctx context.Context, tx pgx.Tx, id, jobID string) (bool, error)
	// FindByCurrentJob lists the technicians currently pointing at jobID.
	FindByCurrentJob(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.Technician, error)
	// ReleaseHolders frees every technician pointing at jobID except keepID and returns
	// the ids it freed.
	ReleaseHolders(ctx context.Context, tx pgx.Tx, jobID, keepID string) ([]string, error)
	// CompleteJob counts a finished job and frees the technician unless they have
	// already moved on to a different job.
	CompleteJob(ctx context.Context, tx pgx.Tx, id, jobID string) error
	UpdateLastLocation(ctx context.Context, tx pgx.Tx, id string, lat, lng float64, at time.Time) error
	ResetDailyCounters(ctx context.Context) (int64, error)
}

type technicianRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTechnicianRepository(storage *pgxpool.Pool, logger *zap.Logger) TechnicianRepositoryInterface {
	return &technicianRepository{storage: storage, logger: logger}
}

func scanTechnician(row pgx.Row) (*entities.Technician, error) {
	var t entities.Technician
	err := row.Scan(
		&t.ID, &t.Name, &t.Phone, &t.Email, &t.UserID, &t.Status, &t.CurrentJobID, &t.CompletedJobsToday, &t.MaxDailyJobs,
		&t.ApprovedJobTypes, &t.HourlyRate, &t.CommissionRate, &t.LastLocationLat, &t.LastLocationLng, &t.LastLocationUpdate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *technicianRepository) Create(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	query, args, err := psql.Insert(technicianTable).
		Columns("id", "name", "phone", "email", "user_id", "status", "max_daily_jobs", "approved_job_types", "hourly_rate", "commission_rate").
		Values(t.ID, t.Name, t.Phone, t.Email, t.UserID, t.Status, t.MaxDailyJobs, t.ApprovedJobTypes, t.HourlyRate, t.CommissionRate).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build technician insert: %w", err)
	}
	if _, err := pick(r.storage, tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert technician: %w", err)
	}
	return nil
}

func (r *technicianRepository) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error) {
	query, args, err := psql.Select(technicianFields).From(technicianTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build technician select: %w", err)
	}

	t, err := scanTechnician(pick(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("select technician %s: %w", id, err)
	}
	return t, nil
}

func (r *technicianRepository) UpdateProfile(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	query, args, err := psql.Update(technicianTable).
		Set("name", t.Name).
		Set("phone", t.Phone).
		Set("email", t.Email).
		Set("user_id", t.UserID).
		Set("max_daily_jobs", t.MaxDailyJobs).
		Set("approved_job_types", t.ApprovedJobTypes).
		Set("hourly_rate", t.HourlyRate).
		Set("commission_rate", t.CommissionRate).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build technician profile update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update technician %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTechnicianNotFound
	}
	return nil
}

func (r *technicianRepository) ListAvailable(ctx context.Context, tx pgx.Tx) ([]entities.Technician, error) {
	query, args, err := psql.Select(technicianFields).
		From(technicianTable).
		Where(sq.Eq{"status": constants.TechnicianStatusAvailable}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build available technicians select: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available technicians: %w", err)
	}
	defer rows.Close()

	techs := make([]entities.Technician, 0)
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		techs = append(techs, *t)
	}
	return techs, rows.Err()
}

func (r *technicianRepository) Claim(ctx context.Context, tx pgx.Tx, id, jobID string) (bool, error) {
	query, args, err := psql.Update(technicianTable).
		Set("status", constants.TechnicianStatusBusy).
		Set("current_job_id", jobID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.Eq{"status": constants.TechnicianStatusAvailable},
			sq.Eq{"current_job_id": jobID},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build technician claim: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, apperrors.ErrJobAlreadyHeld
		}
		return false, fmt.Errorf("claim technician %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *technicianRepository) FindByCurrentJob(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.Technician, error) {
	query, args, err := psql.Select(technicianFields).
		From(technicianTable).
		Where(sq.Eq{"current_job_id": jobID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job holders select: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holders of job %s: %w", jobID, err)
	}
	defer rows.Close()

	techs := make([]entities.Technician, 0)
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		techs = append(techs, *t)
	}
	return techs, rows.Err()
}

func (r *technicianRepository) ReleaseHolders(ctx context.Context, tx pgx.Tx, jobID, keepID string) ([]string, error) {
	builder := psql.Update(technicianTable).
		Set("status", constants.TechnicianStatusAvailable).
		Set("current_job_id", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"current_job_id": jobID}).
		Suffix("RETURNING id")
	if keepID != "" {
		builder = builder.Where(sq.NotEq{"id": keepID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job holders release: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("release holders of job %s: %w", jobID, err)
	}
	defer rows.Close()

	freed := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan released technician: %w", err)
		}
		freed = append(freed, id)
	}
	return freed, rows.Err()
}

func (r *technicianRepository) CompleteJob(ctx context.Context, tx pgx.Tx, id, jobID string) error {
	const query = `
		UPDATE technicians SET
			completed_jobs_today = completed_jobs_today + 1,
			status = CASE WHEN current_job_id IS NULL OR current_job_id = $2 THEN 'available' ELSE status END,
			current_job_id = CASE WHEN current_job_id = $2 THEN NULL ELSE current_job_id END,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := pick(r.storage, tx).Exec(ctx, query, id, jobID)
	if err != nil {
		return fmt.Errorf("complete job for technician %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTechnicianNotFound
	}
	return nil
}

func (r *technicianRepository) UpdateLastLocation(ctx context.Context, tx pgx.Tx, id string, lat, lng float64, at time.Time) error {
	query, args, err := psql.Update(technicianTable).
		Set("last_location_lat", lat).
		Set("last_location_lng", lng).
		Set("last_location_update", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"last_location_update": nil}, sq.LtOrEq{"last_location_update": at}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build technician location update: %w", err)
	}

	if _, err := pick(r.storage, tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update technician %s location: %w", id, err)
	}
	return nil
}

func (r *technicianRepository) ResetDailyCounters(ctx context.Context) (int64, error) {
	query, args, err := psql.Update(technicianTable).
		Set("completed_jobs_today", 0).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.NotEq{"completed_jobs_today": 0}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build daily reset: %w", err)
	}

	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset daily counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
