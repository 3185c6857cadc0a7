package repositories

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	apperrors "eod-monitor/pkg/errors"
	applogger "eod-monitor/pkg/logger"
)

const delayLogTable = "eod_delay_logs"

type DelayLogRepositoryInterface interface {
	Append(ctx context.Context, entry entities.NotificationLogEntry) error

	// CountByUnit — счётчики за период по отображаемому имени единицы
	// (имя филиала, иначе имя департамента, иначе 'Unknown'),
	// по убыванию счётчика. Порядок при равенстве не дообговаривается.
	CountByUnit(ctx context.Context, from, to time.Time) ([]entities.UnitCount, error)

	CountByType(ctx context.Context, from, to time.Time) ([]entities.TypeCount, error)
}

type delayLogRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDelayLogRepository(storage *pgxpool.Pool, logger *zap.Logger) DelayLogRepositoryInterface {
	return &delayLogRepository{storage: storage, logger: logger}
}

func (r *delayLogRepository) Append(ctx context.Context, entry entities.NotificationLogEntry) error {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(delayLogTable).
		Columns("ts", "delay_type", "branch_id", "department_id", "sent_to").
		Values(entry.Timestamp, string(entry.DelayType), entry.BranchID, entry.DepartmentID, entry.SentTo).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return apperrors.NewConnectivityError("config", err)
	}

	unit := ""
	if entry.BranchID != nil {
		unit = entities.BranchRef(*entry.BranchID).Code()
	} else if entry.DepartmentID != nil {
		unit = *entry.DepartmentID
	}
	applogger.FromContext(ctx, r.logger).Info("уведомление записано в журнал",
		zap.String("delay_type", string(entry.DelayType)),
		zap.String("unit", unit))
	return nil
}

func (r *delayLogRepository) CountByUnit(ctx context.Context, from, to time.Time) ([]entities.UnitCount, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("COALESCE(b.name, d.name, 'Unknown') AS unit_name", "COUNT(*) AS total").
		From(delayLogTable + " l").
		LeftJoin(branchTable + " b ON l.branch_id = b.code").
		LeftJoin(departmentTable + " d ON l.department_id = d.id").
		Where(sq.GtOrEq{"l.ts": from}).
		Where(sq.LtOrEq{"l.ts": to}).
		GroupBy("1").
		OrderBy("total DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("config", err)
	}
	defer rows.Close()

	var counts []entities.UnitCount
	for rows.Next() {
		var c entities.UnitCount
		if err := rows.Scan(&c.UnitName, &c.Total); err != nil {
			return nil, apperrors.NewConnectivityError("config", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("config", err)
	}
	return counts, nil
}

func (r *delayLogRepository) CountByType(ctx context.Context, from, to time.Time) ([]entities.TypeCount, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("delay_type", "COUNT(*) AS total").
		From(delayLogTable).
		Where(sq.GtOrEq{"ts": from}).
		Where(sq.LtOrEq{"ts": to}).
		GroupBy("delay_type").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("config", err)
	}
	defer rows.Close()

	var counts []entities.TypeCount
	for rows.Next() {
		var c entities.TypeCount
		var delayType string
		if err := rows.Scan(&delayType, &c.Total); err != nil {
			return nil, apperrors.NewConnectivityError("config", err)
		}
		c.DelayType = entities.Category(delayType)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("config", err)
	}
	return counts, nil
}
