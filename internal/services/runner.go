// Файл: internal/services/runner.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	applogger "eod-monitor/pkg/logger"
)

// Runner — координатор запуска. Диспетчеры выполняются строго
// последовательно, каждый пишет в контекст запуска под собственным ключом;
// строитель консолидированных отчётов вызывается ровно один раз. Первая
// фатальная ошибка прерывает оставшуюся последовательность.
type Runner struct {
	monitor      *MonitorService
	consolidated *ConsolidatedService
	weekly       *WeeklyService
	logger       *zap.Logger
}

func NewRunner(monitor *MonitorService, consolidated *ConsolidatedService, weekly *WeeklyService, logger *zap.Logger) *Runner {
	return &Runner{monitor: monitor, consolidated: consolidated, weekly: weekly, logger: logger}
}

func (r *Runner) RunDaily(ctx context.Context) error {
	ctx = applogger.WithRunID(ctx, uuid.NewString())
	log := applogger.FromContext(ctx, r.logger)
	log.Info("--- запуск ежедневного мониторинга EOD ---")

	runCtx := entities.RunContext{}

	log.Info("--- мониторинг sign-out филиалов ---")
	incidents, err := r.monitor.DispatchBranchSignouts(ctx)
	if err != nil {
		return fmt.Errorf("диспетчер sign-out филиалов: %w", err)
	}
	runCtx[entities.RunKeyBranchSignouts] = incidents

	log.Info("--- мониторинг финансовых авторизаций филиалов ---")
	incidents, err = r.monitor.DispatchBranchAuthorizations(ctx)
	if err != nil {
		return fmt.Errorf("диспетчер авторизаций филиалов: %w", err)
	}
	runCtx[entities.RunKeyBranchAuths] = incidents

	log.Info("--- мониторинг смен кассиров ---")
	incidents, err = r.monitor.DispatchTellerSignouts(ctx)
	if err != nil {
		return fmt.Errorf("диспетчер смен кассиров: %w", err)
	}
	runCtx[entities.RunKeyTellerSignouts] = incidents

	log.Info("--- мониторинг общей очереди авторизаций ---")
	incidents, err = r.monitor.DispatchCommonAuthorizations(ctx)
	if err != nil {
		return fmt.Errorf("диспетчер общей очереди: %w", err)
	}
	runCtx[entities.RunKeyCommonAuths] = incidents

	log.Info("--- консолидированные отчёты ---")
	if err := r.consolidated.BuildAndSend(ctx, runCtx); err != nil {
		return fmt.Errorf("консолидированные отчёты: %w", err)
	}

	log.Info("ежедневный мониторинг завершён успешно")
	return nil
}

func (r *Runner) RunWeekly(ctx context.Context) error {
	ctx = applogger.WithRunID(ctx, uuid.NewString())
	log := applogger.FromContext(ctx, r.logger)
	log.Info("--- запуск недельного дайджеста EOD ---")

	if err := r.weekly.ComputeAndSend(ctx); err != nil {
		return fmt.Errorf("недельный дайджест: %w", err)
	}

	log.Info("недельный дайджест завершён успешно")
	return nil
}
