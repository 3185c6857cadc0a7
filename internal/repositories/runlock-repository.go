package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunLockRepositoryInterface — advisory-lock от наложения запусков по
// расписанию. Межпроцессная взаимная блокировка этим не решается, это
// только защита от пересечения джобов внутри одного демона.
type RunLockRepositoryInterface interface {
	TryLock(ctx context.Context, key int64) (bool, error)
	Unlock(ctx context.Context, key int64) error
}

type runLockRepository struct{ storage *pgxpool.Pool }

func NewRunLockRepository(storage *pgxpool.Pool) RunLockRepositoryInterface {
	return &runLockRepository{storage: storage}
}

func (r *runLockRepository) TryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.storage.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *runLockRepository) Unlock(ctx context.Context, key int64) error {
	_, err := r.storage.Exec(ctx, "SELECT pg_advisory_unlock($1)", key)
	return err
}
