// Файл: internal/services/monitor_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	"eod-monitor/internal/repositories"
	"eod-monitor/pkg/config"
	apperrors "eod-monitor/pkg/errors"
	applogger "eod-monitor/pkg/logger"
)

const (
	unknownBranchName     = "Unknown Branch"
	unknownDepartmentName = "Unknown Department"
)

// Коды департаментов ядра -> id справочника. Маршрутизация общей очереди
// головного офиса; коды без соответствия пропускаются с предупреждением.
var headOfficeDeptCodes = map[string]string{
	"12": "CREDIT",
	"5":  "FINANCE",
}

// MonitorService — четыре диспетчера таргетных уведомлений. Каждый:
// выборка -> обогащение -> группировка по единице -> получатели -> отправка
// и запись в журнал -> возврат полного списка инцидентов для консолидации.
// Ошибка выборки фатальна для запуска; всё остальное локально.
type MonitorService struct {
	ops         repositories.OperationalRepositoryInterface
	branches    repositories.BranchRepositoryInterface
	departments repositories.DepartmentRepositoryInterface
	delayLog    repositories.DelayLogRepositoryInterface
	emails      EmailServiceInterface
	cfg         *config.Config
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

func NewMonitorService(
	ops repositories.OperationalRepositoryInterface,
	branches repositories.BranchRepositoryInterface,
	departments repositories.DepartmentRepositoryInterface,
	delayLog repositories.DelayLogRepositoryInterface,
	emails EmailServiceInterface,
	cfg *config.Config,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		ops:         ops,
		branches:    branches,
		departments: departments,
		delayLog:    delayLog,
		emails:      emails,
		cfg:         cfg,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// --- ОБОГАЩЕНИЕ ---

func (s *MonitorService) branchName(ctx context.Context, code uint64) string {
	b, err := s.branches.FindBranch(ctx, code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			applogger.FromContext(ctx, s.logger).Warn("справочник филиалов недоступен, используется заглушка",
				zap.Uint64("branch_code", code), zap.Error(err))
		}
		return unknownBranchName
	}
	return b.Name
}

func (s *MonitorService) departmentName(ctx context.Context, id string) string {
	d, err := s.departments.FindDepartment(ctx, id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			applogger.FromContext(ctx, s.logger).Warn("справочник департаментов недоступен, используется заглушка",
				zap.String("department_id", id), zap.Error(err))
		}
		return unknownDepartmentName
	}
	return d.Name
}

// checkRecord — валидация сырой записи на границе обогащения. Невалидная
// запись несётся дальше со значениями по умолчанию, а не отбрасывается.
func (s *MonitorService) checkRecord(ctx context.Context, category entities.Category, rec interface{}) {
	if err := s.validate.Struct(rec); err != nil {
		applogger.FromContext(ctx, s.logger).Warn("сырая запись не прошла валидацию, применены значения по умолчанию",
			zap.String("category", string(category)), zap.Error(err))
	}
}

func (s *MonitorService) templateBase() (string, string) {
	now := s.now()
	return now.Format(displayDateLayout), now.Format(timestampLayout)
}

func (s *MonitorService) appendLog(ctx context.Context, entry entities.NotificationLogEntry) {
	if err := s.delayLog.Append(ctx, entry); err != nil {
		// Уведомление уже ушло; падение журнала не должно срывать запуск.
		applogger.FromContext(ctx, s.logger).Error("не удалось записать уведомление в журнал", zap.Error(err))
	}
}

// --- ДИСПЕТЧЕРЫ ---

// DispatchBranchSignouts — незакрытые sign-out филиалов. Головной офис
// исключается из рассылки по бизнес-правилу, но остаётся в результате
// для консолидированного отчёта.
func (s *MonitorService) DispatchBranchSignouts(ctx context.Context) ([]entities.Incident, error) {
	records, err := s.ops.PendingBranchSignouts(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("выборка незакрытых sign-out: %w", err)
	}
	if len(records) == 0 {
		applogger.FromContext(ctx, s.logger).Info("Branch Signouts: незакрытых позиций нет")
		return []entities.Incident{}, nil
	}

	incidents := make([]entities.Incident, 0, len(records))
	for _, rec := range records {
		s.checkRecord(ctx, entities.CategoryBranchSignout, rec)
		incidents = append(incidents, entities.Incident{
			Category: entities.CategoryBranchSignout,
			Unit:     entities.BranchRef(rec.BranchCode),
			UnitName: s.branchName(ctx, rec.BranchCode),
		})
	}

	for _, key := range GroupIncidents(incidents).Keys() {
		code := key.Unit.BranchCode
		if code == s.cfg.HeadOfficeBranchCode {
			applogger.FromContext(ctx, s.logger).Info("sign-out головного офиса не закрыт, но исключён из рассылки по бизнес-правилу")
			continue
		}

		branch, err := s.branches.FindBranch(ctx, code)
		if err != nil {
			applogger.FromContext(ctx, s.logger).Warn("нет конфигурации филиала, таргетное уведомление пропущено",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		if len(branch.SupervisorEmails) == 0 {
			applogger.FromContext(ctx, s.logger).Warn("у филиала нет супервайзеров, sign-out уведомление пропущено",
				zap.Uint64("branch_code", code))
			continue
		}

		currentDate, timestamp := s.templateBase()
		subject := fmt.Sprintf("Action Required: EOD Branch Sign-out Pending for %s", key.Name)
		data := map[string]interface{}{
			"branch_name":  key.Name,
			"current_date": currentDate,
			"timestamp":    timestamp,
		}
		if err := s.emails.Send(ctx, branch.SupervisorEmails, subject, "branch_signout_alert.html", data); err != nil {
			applogger.FromContext(ctx, s.logger).Error("не удалось отправить sign-out уведомление",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		s.appendLog(ctx, entities.BranchLogEntry(s.now().UTC(), entities.CategoryBranchSignout, code, branch.SupervisorEmails))
	}

	return incidents, nil
}

// DispatchBranchAuthorizations — финансовые авторизации филиалов.
func (s *MonitorService) DispatchBranchAuthorizations(ctx context.Context) ([]entities.Incident, error) {
	records, err := s.ops.PendingBranchAuthorizations(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("выборка авторизаций филиалов: %w", err)
	}
	if len(records) == 0 {
		applogger.FromContext(ctx, s.logger).Info("Branch Financial Auths: незакрытых позиций нет")
		return []entities.Incident{}, nil
	}

	incidents := make([]entities.Incident, 0, len(records))
	for _, rec := range records {
		s.checkRecord(ctx, entities.CategoryBranchAuth, rec)
		incidents = append(incidents, entities.Incident{
			Category:  entities.CategoryBranchAuth,
			Unit:      entities.BranchRef(rec.BranchCode),
			UnitName:  s.branchName(ctx, rec.BranchCode),
			Reference: rec.Reference,
			ActorID:   rec.EnteredBy,
			Amount:    rec.Amount,
		})
	}

	groups := GroupIncidents(incidents)
	for _, key := range groups.Keys() {
		code := key.Unit.BranchCode
		branch, err := s.branches.FindBranch(ctx, code)
		if err != nil {
			applogger.FromContext(ctx, s.logger).Warn("нет конфигурации филиала, уведомление об авторизациях пропущено",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		if len(branch.SupervisorEmails) == 0 {
			continue
		}

		transactions := groups.Get(key)
		var totalAmount float64
		for _, txn := range transactions {
			totalAmount += txn.Amount
		}

		currentDate, timestamp := s.templateBase()
		data := map[string]interface{}{
			"group_name":    branch.Name,
			"transactions":  transactions,
			"total_pending": len(transactions),
			"total_amount":  formatMoney(totalAmount),
			"current_date":  currentDate,
			"timestamp":     timestamp,
		}
		subject := fmt.Sprintf("Urgent Action: Pending Transaction Authorizations for %s", branch.Name)
		if err := s.emails.Send(ctx, branch.SupervisorEmails, subject, "transaction_auth_alert.html", data); err != nil {
			applogger.FromContext(ctx, s.logger).Error("не удалось отправить уведомление об авторизациях",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		s.appendLog(ctx, entities.BranchLogEntry(s.now().UTC(), entities.CategoryBranchAuth, code, branch.SupervisorEmails))
	}

	return incidents, nil
}

// DispatchTellerSignouts — незакрытые смены кассиров, сгруппированные
// по филиалу.
func (s *MonitorService) DispatchTellerSignouts(ctx context.Context) ([]entities.Incident, error) {
	records, err := s.ops.PendingTellerSignouts(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("выборка незакрытых смен кассиров: %w", err)
	}
	if len(records) == 0 {
		applogger.FromContext(ctx, s.logger).Info("Teller Signouts: незакрытых позиций нет")
		return []entities.Incident{}, nil
	}

	incidents := make([]entities.Incident, 0, len(records))
	for _, rec := range records {
		s.checkRecord(ctx, entities.CategoryTellerSignout, rec)
		incidents = append(incidents, entities.Incident{
			Category: entities.CategoryTellerSignout,
			Unit:     entities.BranchRef(rec.BranchCode),
			UnitName: s.branchName(ctx, rec.BranchCode),
			TellerID: rec.TellerID,
		})
	}

	groups := GroupIncidents(incidents)
	for _, key := range groups.Keys() {
		code := key.Unit.BranchCode
		branch, err := s.branches.FindBranch(ctx, code)
		if err != nil {
			applogger.FromContext(ctx, s.logger).Warn("нет конфигурации филиала, уведомление о кассирах пропущено",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		if len(branch.SupervisorEmails) == 0 {
			continue
		}

		tellerIDs := make([]string, 0, len(groups.Get(key)))
		for _, inc := range groups.Get(key) {
			tellerIDs = append(tellerIDs, inc.TellerID)
		}

		currentDate, timestamp := s.templateBase()
		data := map[string]interface{}{
			"branch_name":  branch.Name,
			"teller_ids":   tellerIDs,
			"current_date": currentDate,
			"timestamp":    timestamp,
		}
		subject := fmt.Sprintf("Action Required: Pending Teller Sign-outs at %s", branch.Name)
		if err := s.emails.Send(ctx, branch.SupervisorEmails, subject, "teller_signout_alert.html", data); err != nil {
			applogger.FromContext(ctx, s.logger).Error("не удалось отправить уведомление о кассирах",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		s.appendLog(ctx, entities.BranchLogEntry(s.now().UTC(), entities.CategoryTellerSignout, code, branch.SupervisorEmails))
	}

	return incidents, nil
}

// DispatchCommonAuthorizations — общая очередь авторизаций. Позиции,
// введённые в головном офисе, маршрутизируются на департамент через карту
// пользователей ядра; остальные группируются по филиалу. Позиция головного
// офиса без распознанного департамента пропускается с предупреждением.
func (s *MonitorService) DispatchCommonAuthorizations(ctx context.Context) ([]entities.Incident, error) {
	records, err := s.ops.PendingCommonAuthorizations(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("выборка общей очереди авторизаций: %w", err)
	}
	if len(records) == 0 {
		applogger.FromContext(ctx, s.logger).Info("Common Auths: незакрытых позиций нет")
		return []entities.Incident{}, nil
	}

	var userMap map[string]string
	for _, rec := range records {
		if rec.BranchCode == s.cfg.HeadOfficeBranchCode {
			userMap, err = s.ops.HeadOfficeUserDepartments(ctx)
			if err != nil {
				return nil, fmt.Errorf("карта пользователей головного офиса: %w", err)
			}
			break
		}
	}

	var incidents []entities.Incident
	for _, rec := range records {
		s.checkRecord(ctx, entities.CategoryCommonAuth, rec)

		if rec.BranchCode == s.cfg.HeadOfficeBranchCode {
			deptID, ok := headOfficeDeptCodes[userMap[rec.EnteredBy]]
			if !ok {
				// Нет распознанного департамента — позиция остаётся за
				// головным офисом: рассылки по ней не будет, но в
				// консолидированном отчёте она видна.
				applogger.FromContext(ctx, s.logger).Warn("позиция головного офиса без распознанного департамента, остаётся за головным офисом",
					zap.String("reference", rec.Reference),
					zap.String("entered_by", rec.EnteredBy))
				incidents = append(incidents, entities.Incident{
					Category:  entities.CategoryCommonAuth,
					Unit:      entities.BranchRef(rec.BranchCode),
					UnitName:  s.branchName(ctx, rec.BranchCode),
					Reference: rec.Reference,
					ActorID:   rec.EnteredBy,
				})
				continue
			}
			incidents = append(incidents, entities.Incident{
				Category:  entities.CategoryCommonAuth,
				Unit:      entities.DepartmentRef(deptID),
				UnitName:  s.departmentName(ctx, deptID),
				Reference: rec.Reference,
				ActorID:   rec.EnteredBy,
			})
			continue
		}

		incidents = append(incidents, entities.Incident{
			Category:  entities.CategoryCommonAuth,
			Unit:      entities.BranchRef(rec.BranchCode),
			UnitName:  s.branchName(ctx, rec.BranchCode),
			Reference: rec.Reference,
			ActorID:   rec.EnteredBy,
		})
	}

	groups := GroupIncidents(incidents)
	for _, key := range groups.Keys() {
		items := groups.Get(key)
		currentDate, timestamp := s.templateBase()

		if key.Unit.Kind == entities.UnitDepartment {
			dept, err := s.departments.FindDepartment(ctx, key.Unit.DepartmentID)
			if err != nil {
				applogger.FromContext(ctx, s.logger).Warn("нет конфигурации департамента, уведомление пропущено",
					zap.String("department_id", key.Unit.DepartmentID), zap.Error(err))
				continue
			}
			recipients := append(append([]string{}, dept.SupervisorEmails...), dept.ManagerEmails...)
			if len(recipients) == 0 {
				continue
			}
			data := map[string]interface{}{
				"group_name":   dept.Name,
				"items":        items,
				"current_date": currentDate,
				"timestamp":    timestamp,
			}
			subject := fmt.Sprintf("Action Required: Pending Common Authorizations for %s", dept.Name)
			if err := s.emails.Send(ctx, recipients, subject, "common_auth_alert.html", data); err != nil {
				applogger.FromContext(ctx, s.logger).Error("не удалось отправить уведомление об общей очереди",
					zap.String("department_id", dept.ID), zap.Error(err))
				continue
			}
			s.appendLog(ctx, entities.DepartmentLogEntry(s.now().UTC(), entities.CategoryCommonAuth, dept.ID, recipients))
			continue
		}

		code := key.Unit.BranchCode
		if code == s.cfg.HeadOfficeBranchCode {
			applogger.FromContext(ctx, s.logger).Info("общая очередь головного офиса без департамента: рассылка пропущена")
			continue
		}
		branch, err := s.branches.FindBranch(ctx, code)
		if err != nil {
			applogger.FromContext(ctx, s.logger).Warn("нет конфигурации филиала, уведомление об общей очереди пропущено",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		if len(branch.SupervisorEmails) == 0 {
			continue
		}
		data := map[string]interface{}{
			"group_name":   branch.Name,
			"items":        items,
			"current_date": currentDate,
			"timestamp":    timestamp,
		}
		subject := fmt.Sprintf("Action Required: Pending Common Authorizations for %s", branch.Name)
		if err := s.emails.Send(ctx, branch.SupervisorEmails, subject, "common_auth_alert.html", data); err != nil {
			applogger.FromContext(ctx, s.logger).Error("не удалось отправить уведомление об общей очереди",
				zap.Uint64("branch_code", code), zap.Error(err))
			continue
		}
		s.appendLog(ctx, entities.BranchLogEntry(s.now().UTC(), entities.CategoryCommonAuth, code, branch.SupervisorEmails))
	}

	return incidents, nil
}
