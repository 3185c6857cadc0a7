// Файл: internal/routes/routes.go
package routes

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eod-monitor/internal/controllers"
	"eod-monitor/internal/services"
	"eod-monitor/pkg/config"
)

func InitRouter(e *echo.Echo, runner *services.Runner, cfg *config.Config, logger *zap.Logger) {
	ctrl := controllers.NewMonitorController(runner, logger)

	e.GET("/healthz", ctrl.Healthz)

	api := e.Group("/api/v1", adminTokenMiddleware(cfg.Server.AdminToken, logger))
	api.POST("/run/daily", ctrl.TriggerDaily)
	api.POST("/run/weekly", ctrl.TriggerWeekly)
}

// adminTokenMiddleware сверяет статический токен из заголовка X-Admin-Token.
// Пустой токен в конфигурации закрывает триггеры полностью.
func adminTokenMiddleware(token string, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get("X-Admin-Token")
			if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				logger.Warn("отклонён запрос к админ-эндпоинту", zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
