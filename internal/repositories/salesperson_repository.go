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

type SalespersonRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error
	FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Salesperson, error)
	Update(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error
}

type salespersonRepository struct {
	storage *pgxpool.Pool
}

func NewSalespersonRepository(storage *pgxpool.Pool) SalespersonRepositoryInterface {
	return &salespersonRepository{storage: storage}
}

func (r *salespersonRepository) Create(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error {
	query, args, err := psql.Insert("salespeople").
		Columns("id", "name", "email", "commission_rate").
		Values(s.ID, s.Name, s.Email, s.CommissionRate).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build salesperson insert: %w", err)
	}
	if _, err := pick(r.storage, tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert salesperson: %w", err)
	}
	return nil
}

func (r *salespersonRepository) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Salesperson, error) {
	query, args, err := psql.Select("id, name, email, commission_rate, created_at").
		From("salespeople").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build salesperson select: %w", err)
	}

	var s entities.Salesperson
	err = pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&s.ID, &s.Name, &s.Email, &s.CommissionRate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSalespersonNotFound
		}
		return nil, fmt.Errorf("select salesperson %s: %w", id, err)
	}
	return &s, nil
}

func (r *salespersonRepository) Update(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error {
	query, args, err := psql.Update("salespeople").
		Set("name", s.Name).
		Set("email", s.Email).
		Set("commission_rate", s.CommissionRate).
		Where(sq.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build salesperson update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update salesperson %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSalespersonNotFound
	}
	return nil
}
