package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eod-monitor/internal/entities"
	apperrors "eod-monitor/pkg/errors"
)

const branchTable = "branches"

type BranchRepositoryInterface interface {
	FindBranch(ctx context.Context, code uint64) (*entities.Branch, error)
}

type branchRepository struct{ storage *pgxpool.Pool }

func NewBranchRepository(storage *pgxpool.Pool) BranchRepositoryInterface {
	return &branchRepository{storage: storage}
}

func (r *branchRepository) FindBranch(ctx context.Context, code uint64) (*entities.Branch, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("code", "name", "supervisor_emails").
		From(branchTable).
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var b entities.Branch
	err = r.storage.QueryRow(ctx, query, args...).Scan(&b.Code, &b.Name, &b.SupervisorEmails)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования branch: %w", err)
	}
	return &b, nil
}
