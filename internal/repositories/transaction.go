package repositories

import (
	"context"
	"fmt"

	"field-crm/pkg/retry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type TxManager struct {
	pool   *pgxpool.Pool
	retry  retry.Config
	logger *zap.Logger
}

func NewTxManager(pool *pgxpool.Pool, retryCfg retry.Config, logger *zap.Logger) TxManagerInterface {
	return &TxManager{pool: pool, retry: retryCfg, logger: logger}
}

// RunInTransaction runs fn in one transaction. Transient failures (serialization,
// dropped connections) roll back and re-run fn from scratch, so fn must not keep state
// between invocations.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	attempt := 0
	return retry.Do(ctx, m.retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			m.logger.Warn("retrying transaction", zap.Int("attempt", attempt))
		}
		return m.runOnce(ctx, fn)
	})
}

func (m *TxManager) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
			if err != nil {
				err = fmt.Errorf("commit transaction: %w", err)
			}
		}
	}()

	err = fn(tx)
	return err
}
