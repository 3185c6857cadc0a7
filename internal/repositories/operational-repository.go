package repositories

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	apperrors "eod-monitor/pkg/errors"
	applogger "eod-monitor/pkg/logger"
)

// Таблицы реплики ядра. Имена колонок сохранены как в АБС.
const (
	brnStatusTable  = "brnstatus"
	branchAuthTable = "bopauthq"
	tellerTable     = "cashsigninout"
	commonAuthTable = "tbaauthq"
	coreUsersTable  = "users"
)

type OperationalRepositoryInterface interface {
	PendingBranchSignouts(ctx context.Context, date time.Time) ([]entities.BranchSignoutRecord, error)
	PendingBranchAuthorizations(ctx context.Context, date time.Time) ([]entities.BranchAuthRecord, error)
	PendingTellerSignouts(ctx context.Context, date time.Time) ([]entities.TellerSignoutRecord, error)
	PendingCommonAuthorizations(ctx context.Context, date time.Time) ([]entities.CommonAuthRecord, error)
	HeadOfficeUserDepartments(ctx context.Context) (map[string]string, error)
}

type operationalRepository struct {
	storage    *pgxpool.Pool
	headOffice uint64
	logger     *zap.Logger
}

func NewOperationalRepository(storage *pgxpool.Pool, headOffice uint64, logger *zap.Logger) OperationalRepositoryInterface {
	return &operationalRepository{storage: storage, headOffice: headOffice, logger: logger}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PendingBranchSignouts — филиалы, не закрывшие день ('I' = in progress).
func (r *operationalRepository) PendingBranchSignouts(ctx context.Context, date time.Time) ([]entities.BranchSignoutRecord, error) {
	query, args, err := psql.
		Select("brnstatus_brn_code", "brnstatus_status", "brnstatus_curr_date").
		From(brnStatusTable).
		Where(sq.Eq{"brnstatus_status": "I"}).
		Where(sq.Expr("brnstatus_curr_date::date = ?::date", date)).
		ToSql()
	if err != nil {
		return nil, err
	}

	applogger.FromContext(ctx, r.logger).Info("запрос незакрытых sign-out филиалов", zap.Time("date", date))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	defer rows.Close()

	var records []entities.BranchSignoutRecord
	for rows.Next() {
		var rec entities.BranchSignoutRecord
		if err := rows.Scan(&rec.BranchCode, &rec.Status, &rec.BusinessDate); err != nil {
			return nil, apperrors.NewConnectivityError("operational", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	return records, nil
}

// PendingBranchAuthorizations — финансовые авторизации филиалов
// ('N' = not authorized). Головной офис исключён на уровне запроса.
func (r *operationalRepository) PendingBranchAuthorizations(ctx context.Context, date time.Time) ([]entities.BranchAuthRecord, error) {
	query, args, err := psql.
		Select("bopauthq_tran_brn_code", "bopauthq_source_key_value", "bopauthq_entd_by", "bopauthq_amt_involved_in_bc").
		From(branchAuthTable).
		Where(sq.Eq{"bopauthq_entry_status": "N"}).
		Where(sq.Expr("bopauthq_tran_date_of_tran::date = ?::date", date)).
		Where(sq.NotEq{"bopauthq_tran_brn_code": r.headOffice}).
		ToSql()
	if err != nil {
		return nil, err
	}

	applogger.FromContext(ctx, r.logger).Info("запрос незакрытых авторизаций филиалов", zap.Time("date", date))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	defer rows.Close()

	var records []entities.BranchAuthRecord
	for rows.Next() {
		var rec entities.BranchAuthRecord
		var enteredBy sql.NullString
		var amount sql.NullFloat64
		if err := rows.Scan(&rec.BranchCode, &rec.Reference, &enteredBy, &amount); err != nil {
			return nil, apperrors.NewConnectivityError("operational", err)
		}
		rec.EnteredBy = enteredBy.String
		rec.Amount = amount.Float64
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	return records, nil
}

// PendingTellerSignouts — кассиры, не закрывшие смену.
func (r *operationalRepository) PendingTellerSignouts(ctx context.Context, date time.Time) ([]entities.TellerSignoutRecord, error) {
	query, args, err := psql.
		Select("cashsign_brn_code", "cashsign_user_id").
		From(tellerTable).
		Where(sq.Expr("cashsign_date::date = ?::date", date)).
		Where(sq.Eq{"cashsign_signed_out": 0}).
		ToSql()
	if err != nil {
		return nil, err
	}

	applogger.FromContext(ctx, r.logger).Info("запрос незакрытых смен кассиров", zap.Time("date", date))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	defer rows.Close()

	var records []entities.TellerSignoutRecord
	for rows.Next() {
		var rec entities.TellerSignoutRecord
		if err := rows.Scan(&rec.BranchCode, &rec.TellerID); err != nil {
			return nil, apperrors.NewConnectivityError("operational", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	return records, nil
}

// PendingCommonAuthorizations — общая очередь авторизаций за дату.
func (r *operationalRepository) PendingCommonAuthorizations(ctx context.Context, date time.Time) ([]entities.CommonAuthRecord, error) {
	query, args, err := psql.
		Select("tbaq_done_brn", "tbaq_main_pk", "tbaq_done_by").
		From(commonAuthTable).
		Where(sq.Expr("tbaq_entry_date::date = ?::date", date)).
		ToSql()
	if err != nil {
		return nil, err
	}

	applogger.FromContext(ctx, r.logger).Info("запрос общей очереди авторизаций", zap.Time("date", date))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	defer rows.Close()

	var records []entities.CommonAuthRecord
	for rows.Next() {
		var rec entities.CommonAuthRecord
		var doneBy sql.NullString
		if err := rows.Scan(&rec.BranchCode, &rec.Reference, &doneBy); err != nil {
			return nil, apperrors.NewConnectivityError("operational", err)
		}
		rec.EnteredBy = doneBy.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	return records, nil
}

// HeadOfficeUserDepartments — карта user_id -> код департамента для
// пользователей головного офиса. Нужна для маршрутизации общей очереди.
func (r *operationalRepository) HeadOfficeUserDepartments(ctx context.Context) (map[string]string, error) {
	query, args, err := psql.
		Select("user_id", "user_dept_code").
		From(coreUsersTable).
		Where(sq.Eq{"user_branch_code": r.headOffice}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	defer rows.Close()

	userMap := make(map[string]string)
	for rows.Next() {
		var userID string
		var deptCode sql.NullString
		if err := rows.Scan(&userID, &deptCode); err != nil {
			return nil, apperrors.NewConnectivityError("operational", err)
		}
		if deptCode.Valid {
			userMap[userID] = deptCode.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewConnectivityError("operational", err)
	}
	return userMap, nil
}
