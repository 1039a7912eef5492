package repositories

import (
	"context"
	"fmt"

	"field-crm/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const timelineTable = "job_timeline_events"

// TimelineRepositoryInterface is append-only: events are never updated or deleted.
type TimelineRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, event *entities.JobTimelineEvent) error
	FindByJobID(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.JobTimelineEvent, error)
}

type timelineRepository struct {
	storage *pgxpool.Pool
}

func NewTimelineRepository(storage *pgxpool.Pool) TimelineRepositoryInterface {
	return &timelineRepository{storage: storage}
}

func (r *timelineRepository) Create(ctx context.Context, tx pgx.Tx, event *entities.JobTimelineEvent) error {
	metadata, err := entities.EncodeMetadata(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode timeline metadata: %w", err)
	}

	query, args, err := psql.Insert(timelineTable).
		Columns("id", "job_id", "event_type", "description", "created_by", "metadata").
		Values(event.ID, event.JobID, event.EventType, event.Description, event.CreatedBy, metadata).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build timeline insert: %w", err)
	}

	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&event.CreatedAt); err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func (r *timelineRepository) FindByJobID(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.JobTimelineEvent, error) {
	query, args, err := psql.Select("id, job_id, event_type, description, created_by, metadata, created_at").
		From(timelineTable).
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("created_at", "seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build timeline select: %w", err)
	}

	rows, err := pick(r.storage, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select timeline: %w", err)
	}
	defer rows.Close()

	events := make([]entities.JobTimelineEvent, 0)
	for rows.Next() {
		var (
			e   entities.JobTimelineEvent
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.EventType, &e.Description, &e.CreatedBy, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		if e.Metadata, err = entities.DecodeMetadata(e.EventType, raw); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
