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

const departmentTable = "departments"

type DepartmentRepositoryInterface interface {
	FindDepartment(ctx context.Context, id string) (*entities.Department, error)
}

type departmentRepository struct{ storage *pgxpool.Pool }

func NewDepartmentRepository(storage *pgxpool.Pool) DepartmentRepositoryInterface {
	return &departmentRepository{storage: storage}
}

func (r *departmentRepository) FindDepartment(ctx context.Context, id string) (*entities.Department, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "name", "supervisor_emails", "manager_emails").
		From(departmentTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var d entities.Department
	err = r.storage.QueryRow(ctx, query, args...).Scan(&d.ID, &d.Name, &d.SupervisorEmails, &d.ManagerEmails)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования department: %w", err)
	}
	return &d, nil
}
