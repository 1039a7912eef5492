package repositories

import (
	"context"
	"fmt"

	"field-crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactAttemptRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, a *entities.ContactAttempt) error
}

type contactAttemptRepository struct {
	storage *pgxpool.Pool
}

func NewContactAttemptRepository(storage *pgxpool.Pool) ContactAttemptRepositoryInterface {
	return &contactAttemptRepository{storage: storage}
}

func (r *contactAttemptRepository) Create(ctx context.Context, tx pgx.Tx, a *entities.ContactAttempt) error {
	query, args, err := psql.Insert("contact_attempts").
		Columns("id", "technician_id", "job_id", "channel", "recipient", "subject", "success", "message_id", "error").
		Values(a.ID, a.TechnicianID, a.JobID, a.Channel, a.Recipient, a.Subject, a.Success, a.MessageID, a.Error).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact attempt insert: %w", err)
	}
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("insert contact attempt: %w", err)
	}
	return nil
}
