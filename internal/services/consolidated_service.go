// Файл: internal/services/consolidated_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	"eod-monitor/internal/repositories"
	"eod-monitor/pkg/config"
	applogger "eod-monitor/pkg/logger"
	"eod-monitor/pkg/mailer"
)

// ReportGroup — одна секция консолидированного отчёта (единица + её
// инциденты). Экспортируемые поля читаются html-шаблоном.
type ReportGroup struct {
	Code      string
	Name      string
	Incidents []entities.Incident
}

// ConsolidatedService собирает три консолидированных отчёта по итогам
// одного запуска. Никакой дополнительной дедупликации: инцидент из
// контекста запуска попадает во все подходящие аудитории независимо от
// того, ушло ли по нему таргетное уведомление.
type ConsolidatedService struct {
	settings repositories.SettingsRepositoryInterface
	emails   EmailServiceInterface
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewConsolidatedService(
	settings repositories.SettingsRepositoryInterface,
	emails EmailServiceInterface,
	cfg *config.Config,
	logger *zap.Logger,
) *ConsolidatedService {
	return &ConsolidatedService{
		settings: settings,
		emails:   emails,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildAndSend вызывается координатором ровно один раз за запуск, после
// завершения всех диспетчеров. Пропуск одной аудитории (нет данных или
// получателей, неудачная отправка) не мешает двум другим.
func (s *ConsolidatedService) BuildAndSend(ctx context.Context, runCtx entities.RunContext) error {
	itMonitoring, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.ITCoreMonitoring)
	if err != nil {
		return fmt.Errorf("группа IT-мониторинга: %w", err)
	}
	branchDistro, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.BranchDistribution)
	if err != nil {
		return fmt.Errorf("группа рассылки филиалов: %w", err)
	}
	creditSups, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.CreditSupervisors)
	if err != nil {
		return fmt.Errorf("группа кредитных супервайзеров: %w", err)
	}
	financeSups, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.FinanceSupervisors)
	if err != nil {
		return fmt.Errorf("группа финансовых супервайзеров: %w", err)
	}

	// --- Отчёт по операциям филиалов ---
	var branchIncidents []entities.Incident
	for _, inc := range runCtx[entities.RunKeyBranchSignouts] {
		if inc.Unit.BranchCode != s.cfg.HeadOfficeBranchCode {
			branchIncidents = append(branchIncidents, inc)
		}
	}
	branchIncidents = append(branchIncidents, runCtx[entities.RunKeyTellerSignouts]...)
	branchIncidents = append(branchIncidents, runCtx[entities.RunKeyBranchAuths]...)
	var branchCommonAuths int
	for _, inc := range runCtx[entities.RunKeyCommonAuths] {
		if inc.Unit.Kind == entities.UnitBranch {
			branchIncidents = append(branchIncidents, inc)
			branchCommonAuths++
		}
	}

	var signoutCount int
	for _, inc := range branchIncidents {
		if inc.Category == entities.CategoryBranchSignout {
			signoutCount++
		}
	}
	var authTotal float64
	for _, inc := range runCtx[entities.RunKeyBranchAuths] {
		authTotal += inc.Amount
	}
	branchMetrics := map[string]interface{}{
		"total_branch_signouts": signoutCount,
		"total_teller_signouts": len(runCtx[entities.RunKeyTellerSignouts]),
		"total_financial_value": formatMoney(authTotal),
		"total_common_auths":    branchCommonAuths,
	}
	s.generateAndSend(ctx, "Branch Operations Report", branchIncidents,
		mailer.CleanRecipients(append(append([]string{}, itMonitoring...), branchDistro...)), branchMetrics)

	// --- Отчёты надзора: только департаментские авторизации, отбор по
	// префиксу имени департамента ---
	s.sendOversightReport(ctx, "Credit Department Report", "Credit", runCtx,
		mailer.CleanRecipients(append(append([]string{}, itMonitoring...), creditSups...)))
	s.sendOversightReport(ctx, "Finance Department Report", "Finance", runCtx,
		mailer.CleanRecipients(append(append([]string{}, itMonitoring...), financeSups...)))

	return nil
}

func (s *ConsolidatedService) sendOversightReport(ctx context.Context, title, namePrefix string, runCtx entities.RunContext, recipients []string) {
	var incidents []entities.Incident
	var amountTotal float64
	for _, inc := range runCtx[entities.RunKeyCommonAuths] {
		if inc.Unit.Kind == entities.UnitDepartment && strings.HasPrefix(inc.UnitName, namePrefix) {
			incidents = append(incidents, inc)
			amountTotal += inc.Amount
		}
	}

	metrics := map[string]interface{}{
		"total_branch_signouts": 0,
		"total_teller_signouts": 0,
		"total_financial_value": formatMoney(amountTotal),
		"total_common_auths":    len(incidents),
	}
	s.generateAndSend(ctx, title, incidents, recipients, metrics)
}

func (s *ConsolidatedService) generateAndSend(ctx context.Context, title string, incidents []entities.Incident, recipients []string, metrics map[string]interface{}) {
	if len(incidents) == 0 {
		applogger.FromContext(ctx, s.logger).Info("нет данных для консолидированного отчёта, пропуск",
			zap.String("report", title))
		return
	}
	if len(recipients) == 0 {
		applogger.FromContext(ctx, s.logger).Warn("для консолидированного отчёта не настроены получатели, пропуск",
			zap.String("report", title))
		return
	}

	// Детерминированная раскладка: сортировка по (имя единицы, тип),
	// затем перегруппировка с сохранением порядка.
	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].UnitName != incidents[j].UnitName {
			return incidents[i].UnitName < incidents[j].UnitName
		}
		return incidents[i].TypeLabel() < incidents[j].TypeLabel()
	})

	grouped := GroupIncidents(incidents)
	reportGroups := make([]ReportGroup, 0, grouped.Len())
	for _, key := range grouped.Keys() {
		reportGroups = append(reportGroups, ReportGroup{
			Code:      key.Unit.Code(),
			Name:      key.Name,
			Incidents: grouped.Get(key),
		})
	}

	now := s.now()
	data := map[string]interface{}{
		"report_title": title,
		"groups":       reportGroups,
		"metrics":      metrics,
		"current_date": now.Format(displayDateLayout),
		"timestamp":    now.Format(timestampLayout),
	}
	subject := fmt.Sprintf("%s - %s", title, now.Format(displayDateLayout))

	if err := s.emails.Send(ctx, recipients, subject, "consolidated_report.html", data); err != nil {
		applogger.FromContext(ctx, s.logger).Error("не удалось отправить консолидированный отчёт",
			zap.String("report", title), zap.Error(err))
	}
}
