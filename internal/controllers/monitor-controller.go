// Файл: internal/controllers/monitor-controller.go
package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eod-monitor/internal/services"
)

// MonitorController — админ-поверхность демона: проверка живости и ручные
// триггеры запусков (повтор после исправления данных, проверка настроек).
type MonitorController struct {
	runner *services.Runner
	logger *zap.Logger
}

func NewMonitorController(runner *services.Runner, logger *zap.Logger) *MonitorController {
	return &MonitorController{runner: runner, logger: logger}
}

func (c *MonitorController) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (c *MonitorController) TriggerDaily(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	c.logger.Info("ручной запуск ежедневного мониторинга")

	if err := c.runner.RunDaily(reqCtx); err != nil {
		c.logger.Error("ручной ежедневный запуск завершился с ошибкой", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "completed"})
}

func (c *MonitorController) TriggerWeekly(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	c.logger.Info("ручной запуск недельного дайджеста")

	if err := c.runner.RunWeekly(reqCtx); err != nil {
		c.logger.Error("ручной недельный запуск завершился с ошибкой", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "completed"})
}
