// Файл: internal/jobs/cron.go
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"eod-monitor/internal/repositories"
	"eod-monitor/internal/services"
	"eod-monitor/pkg/config"
)

// Ключи advisory-lock, чтобы джобы не накладывались внутри демона.
const (
	dailyLockKey  int64 = 220801
	weeklyLockKey int64 = 220802
)

const runTimeout = 15 * time.Minute

type Cron struct {
	runner  *services.Runner
	runLock repositories.RunLockRepositoryInterface
	logger  *zap.Logger
	c       *cron.Cron
}

func NewCron(cfg config.ScheduleConfig, runner *services.Runner, runLock repositories.RunLockRepositoryInterface, logger *zap.Logger) (*Cron, error) {
	c := cron.New()
	jobs := &Cron{runner: runner, runLock: runLock, logger: logger, c: c}

	if _, err := c.AddFunc(cfg.DailyCron, jobs.daily); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.WeeklyCron, jobs.weekly); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (j *Cron) Start() { j.c.Start() }

func (j *Cron) Stop() { j.c.Stop() }

func (j *Cron) daily() {
	j.runLocked(dailyLockKey, "daily", j.runner.RunDaily)
}

func (j *Cron) weekly() {
	j.runLocked(weeklyLockKey, "weekly", j.runner.RunWeekly)
}

func (j *Cron) runLocked(key int64, name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	ok, err := j.runLock.TryLock(ctx, key)
	if err != nil {
		j.logger.Error("cron: ошибка получения run-lock", zap.String("job", name), zap.Error(err))
		return
	}
	if !ok {
		j.logger.Info("cron: запуск уже выполняется, пропуск", zap.String("job", name))
		return
	}
	defer func() {
		if err := j.runLock.Unlock(context.Background(), key); err != nil {
			j.logger.Error("cron: ошибка освобождения run-lock", zap.String("job", name), zap.Error(err))
		}
	}()

	if err := run(ctx); err != nil {
		j.logger.Error("cron: запуск завершился с ошибкой", zap.String("job", name), zap.Error(err))
	}
}
