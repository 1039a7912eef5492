package repositories

import (
	"context"
	"errors"
	"fmt"

	"field-crm/internal/entities"
	apperrors "field-crm/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	locationTable  = "technician_locations"
	locationFields = "id, technician_id, latitude, longitude, accuracy, speed, heading, altitude, is_moving, job_id, created_at"
)

type LocationRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, loc *entities.TechnicianLocation) error
	FindLatest(ctx context.Context, tx pgx.Tx, technicianID string) (*entities.TechnicianLocation, error)
	// FindLatestFor returns the newest sample per technician; technicians without any
	// sample are absent from the map.
	FindLatestFor(ctx context.Context, tx pgx.Tx, technicianIDs []string) (map[string]entities.TechnicianLocation, error)
}

type locationRepository struct {
	storage *pgxpool.Pool
}

func NewLocationRepository(storage *pgxpool.Pool) LocationRepositoryInterface {
	return &locationRepository{storage: storage}
}

func scanLocation(row pgx.Row) (*entities.TechnicianLocation, error) {
	var l entities.TechnicianLocation
	err := row.Scan(&l.ID, &l.TechnicianID, &l.Latitude, &l.Longitude, &l.Accuracy, &l.Speed, &l.Heading, &l.Altitude,
		&l.IsMoving, &l.JobID, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *locationRepository) Create(ctx context.Context, tx pgx.Tx, loc *entities.TechnicianLocation) error {
	query, args, err := psql.Insert(locationTable).
		Columns("id", "technician_id", "latitude", "longitude", "accuracy", "speed", "heading", "altitude", "is_moving", "job_id").
		Values(loc.ID, loc.TechnicianID, loc.Latitude, loc.Longitude, loc.Accuracy, loc.Speed, loc.Heading, loc.Altitude, loc.IsMoving, loc.JobID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build location insert: %w", err)
	}
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&loc.CreatedAt); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (r *locationRepository) FindLatest(ctx context.Context, tx pgx.Tx, technicianID string) (*entities.TechnicianLocation, error) {
	query, args, err := psql.Select(locationFields).
		From(locationTable).
		Where(sq.Eq{"technician_id": technicianID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest location select: %w", err)
	}

	loc, err := scanLocation(pick(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrLocationNotAvailable
		}
		return nil, fmt.Errorf("select latest location: %w", err)
	}
	return loc, nil
}

func (r *locationRepository) FindLatestFor(ctx context.Context, tx pgx.Tx, technicianIDs []string) (map[string]entities.TechnicianLocation, error) {
	result := make(map[string]entities.TechnicianLocation, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return result, nil
	}

	query, args, err := psql.Select("DISTINCT ON (technician_id) " + locationFields).
		From(locationTable).
		Where(sq.Eq{"technician_id": technicianIDs}).
		OrderBy("technician_id", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest locations select: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select latest locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		result[loc.TechnicianID] = *loc
	}
	return result, rows.Err()
}
