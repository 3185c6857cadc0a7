// Файл: internal/services/weekly_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	"eod-monitor/internal/repositories"
	"eod-monitor/pkg/config"
	applogger "eod-monitor/pkg/logger"
	"eod-monitor/pkg/mailer"
)

// WeeklyService строит недельный срез по журналу уведомлений и рассылает
// дайджест. Чистое чтение: два запуска подряд по неизменному журналу дают
// одинаковые метрики.
type WeeklyService struct {
	delayLog repositories.DelayLogRepositoryInterface
	settings repositories.SettingsRepositoryInterface
	emails   EmailServiceInterface
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewWeeklyService(
	delayLog repositories.DelayLogRepositoryInterface,
	settings repositories.SettingsRepositoryInterface,
	emails EmailServiceInterface,
	cfg *config.Config,
	logger *zap.Logger,
) *WeeklyService {
	return &WeeklyService{
		delayLog: delayLog,
		settings: settings,
		emails:   emails,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// weekBounds — граница ISO-недели, содержащей t: понедельник 00:00:00 —
// воскресенье 23:59:59 (UTC, как и отметки журнала).
func weekBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)
	end := start.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	return start, end
}

// ComputeSnapshot считает срез этой недели против прошлой.
func (s *WeeklyService) ComputeSnapshot(ctx context.Context) (*entities.TrendSnapshot, error) {
	thisStart, thisEnd := weekBounds(s.now())
	lastStart := thisStart.AddDate(0, 0, -7)
	lastEnd := thisStart.Add(-time.Second)

	byUnit, err := s.delayLog.CountByUnit(ctx, thisStart, thisEnd)
	if err != nil {
		return nil, fmt.Errorf("агрегация по единицам за эту неделю: %w", err)
	}
	byType, err := s.delayLog.CountByType(ctx, thisStart, thisEnd)
	if err != nil {
		return nil, fmt.Errorf("агрегация по типам за эту неделю: %w", err)
	}
	lastByUnit, err := s.delayLog.CountByUnit(ctx, lastStart, lastEnd)
	if err != nil {
		return nil, fmt.Errorf("агрегация по единицам за прошлую неделю: %w", err)
	}

	snapshot := &entities.TrendSnapshot{
		PeriodStart:     thisStart,
		PeriodEnd:       thisEnd,
		ByUnit:          byUnit,
		ByType:          byType,
		TrendPercent:    "N/A",
		TrendDirection:  entities.TrendNeutral,
		TopOffenderName: "N/A",
	}

	for _, c := range byUnit {
		snapshot.TotalThisWeek += c.Total
	}
	for _, c := range lastByUnit {
		snapshot.TotalLastWeek += c.Total
	}

	// Процент не определён, когда прошлая неделя пустая; направление в
	// этом случае остаётся neutral при любом текущем итоге.
	if snapshot.TotalLastWeek > 0 {
		change := snapshot.TotalThisWeek - snapshot.TotalLastWeek
		percent := float64(change) / float64(snapshot.TotalLastWeek) * 100
		snapshot.TrendPercent = fmt.Sprintf("%+.1f%%", percent)
		switch {
		case change > 0:
			snapshot.TrendDirection = entities.TrendUp
		case change < 0:
			snapshot.TrendDirection = entities.TrendDown
		}
	}

	if len(byUnit) > 0 {
		snapshot.TopOffenderName = byUnit[0].UnitName
		snapshot.TopOffenderCount = byUnit[0].Total
	}

	for _, c := range byType {
		switch c.DelayType {
		case entities.CategoryBranchAuth:
			snapshot.AuthDelays = c.Total
		case entities.CategoryBranchSignout:
			snapshot.SignoutDelays = c.Total
		}
	}

	return snapshot, nil
}

// ComputeAndSend — еженедельный дайджест: срез, объединение трёх групп
// получателей, одно письмо с xlsx-выгрузкой.
func (s *WeeklyService) ComputeAndSend(ctx context.Context) error {
	snapshot, err := s.ComputeSnapshot(ctx)
	if err != nil {
		return err
	}

	itMonitoring, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.ITCoreMonitoring)
	if err != nil {
		return fmt.Errorf("группа IT-мониторинга: %w", err)
	}
	seniorManagement, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.SeniorManagement)
	if err != nil {
		return fmt.Errorf("группа высшего руководства: %w", err)
	}
	branchDistro, err := s.settings.RecipientGroup(ctx, s.cfg.Settings.BranchDistribution)
	if err != nil {
		return fmt.Errorf("группа рассылки филиалов: %w", err)
	}

	recipients := mailer.CleanRecipients(append(append(append([]string{},
		seniorManagement...), itMonitoring...), branchDistro...))
	if len(recipients) == 0 {
		applogger.FromContext(ctx, s.logger).Warn("для недельного дайджеста не настроены получатели, пропуск")
		return nil
	}

	attachment, err := buildWeeklyWorkbook(snapshot)
	if err != nil {
		// Дайджест ценнее вложения: шлём письмо без него.
		applogger.FromContext(ctx, s.logger).Error("не удалось собрать xlsx-выгрузку, дайджест уйдёт без вложения", zap.Error(err))
		attachment = nil
	}

	startDate := snapshot.PeriodStart.Format(displayDateLayout)
	endDate := snapshot.PeriodEnd.Format(displayDateLayout)
	data := map[string]interface{}{
		"start_date": startDate,
		"end_date":   endDate,
		"by_unit":    snapshot.ByUnit,
		"metrics": map[string]interface{}{
			"total_incidents":    snapshot.TotalThisWeek,
			"trend_percent":      snapshot.TrendPercent,
			"trend_direction":    string(snapshot.TrendDirection),
			"top_offender_name":  snapshot.TopOffenderName,
			"top_offender_count": snapshot.TopOffenderCount,
			"auth_delays":        snapshot.AuthDelays,
			"signout_delays":     snapshot.SignoutDelays,
		},
		"timestamp": s.now().Format(timestampLayout),
	}
	subject := fmt.Sprintf("Weekly EOD Operations Summary: %s to %s", startDate, endDate)

	// Неудачная отправка дайджеста локальна, как и у остальных рассылок:
	// журнал не тронут, повтора внутри запуска нет.
	if err := s.emails.SendWithAttachment(ctx, recipients, subject, "weekly_summary_report.html", data, attachment); err != nil {
		applogger.FromContext(ctx, s.logger).Error("не удалось отправить недельный дайджест", zap.Error(err))
	}
	return nil
}

// buildWeeklyWorkbook — xlsx c листами "By Unit" и "By Type".
func buildWeeklyWorkbook(snapshot *entities.TrendSnapshot) (*mailer.Attachment, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const unitSheet = "By Unit"
	f.SetSheetName("Sheet1", unitSheet)
	_ = f.SetCellValue(unitSheet, "A1", "Unit")
	_ = f.SetCellValue(unitSheet, "B1", "Incidents")
	for i, c := range snapshot.ByUnit {
		_ = f.SetCellValue(unitSheet, fmt.Sprintf("A%d", i+2), c.UnitName)
		_ = f.SetCellValue(unitSheet, fmt.Sprintf("B%d", i+2), c.Total)
	}

	const typeSheet = "By Type"
	if _, err := f.NewSheet(typeSheet); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(typeSheet, "A1", "Delay Type")
	_ = f.SetCellValue(typeSheet, "B1", "Incidents")
	for i, c := range snapshot.ByType {
		_ = f.SetCellValue(typeSheet, fmt.Sprintf("A%d", i+2), string(c.DelayType))
		_ = f.SetCellValue(typeSheet, fmt.Sprintf("B%d", i+2), c.Total)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return &mailer.Attachment{
		Filename:    fmt.Sprintf("eod-weekly-%s.xlsx", snapshot.PeriodStart.Format("2006-01-02")),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}
