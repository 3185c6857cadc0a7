// Файл: app/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"eod-monitor/internal/jobs"
	"eod-monitor/internal/repositories"
	"eod-monitor/internal/routes"
	"eod-monitor/internal/services"
	"eod-monitor/pkg/config"
	"eod-monitor/pkg/database/postgresql"
	applogger "eod-monitor/pkg/logger"
	"eod-monitor/pkg/mailer"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.LogDir)
	defer func() { _ = logger.Sync() }()

	mode := "daily"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger.Info("запуск EOD-монитора",
		zap.String("mode", mode),
		zap.String("email_mode", cfg.Email.Mode))

	if mode == "migrate" {
		if err := runMigrations(cfg); err != nil {
			logger.Fatal("миграции не применились", zap.Error(err))
		}
		logger.Info("миграции применены")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	opPool, cfgPool, redisClient, err := connectSources(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("критическая ошибка подключения к источникам", zap.Error(err))
	}
	defer opPool.Close()
	defer cfgPool.Close()
	defer func() { _ = redisClient.Close() }()

	runner, runLock, err := buildRunner(opPool, cfgPool, redisClient, cfg, logger)
	if err != nil {
		logger.Fatal("не удалось собрать сервисы", zap.Error(err))
	}

	switch mode {
	case "daily":
		if err := runner.RunDaily(context.Background()); err != nil {
			logger.Fatal("критическая ошибка ежедневного запуска", zap.Error(err))
		}
	case "weekly":
		if err := runner.RunWeekly(context.Background()); err != nil {
			logger.Fatal("критическая ошибка недельного запуска", zap.Error(err))
		}
	case "serve":
		if err := serve(cfg, runner, runLock, logger); err != nil {
			logger.Fatal("демон завершился с ошибкой", zap.Error(err))
		}
	default:
		logger.Fatal("неизвестный режим, ожидается daily|weekly|serve|migrate",
			zap.String("mode", mode))
	}
}

func connectSources(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *pgxpool.Pool, *redis.Client, error) {
	opPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.OperationalDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("операционное хранилище: %w", err)
	}

	cfgPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.ConfigDSN)
	if err != nil {
		opPool.Close()
		return nil, nil, nil, fmt.Errorf("хранилище конфигурации: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
	})

	return opPool, cfgPool, redisClient, nil
}

func buildRunner(opPool, cfgPool *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) (*services.Runner, repositories.RunLockRepositoryInterface, error) {
	cache := repositories.NewRedisCacheRepository(redisClient)

	opRepo := repositories.NewOperationalRepository(opPool, cfg.HeadOfficeBranchCode, logger)
	branchRepo := repositories.NewCachedBranchRepository(
		repositories.NewBranchRepository(cfgPool), cache, logger)
	deptRepo := repositories.NewCachedDepartmentRepository(
		repositories.NewDepartmentRepository(cfgPool), cache, logger)
	settingsRepo := repositories.NewSettingsRepository(cfgPool)
	delayLogRepo := repositories.NewDelayLogRepository(cfgPool, logger)
	runLock := repositories.NewRunLockRepository(cfgPool)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP, cfg.Email, logger)
	emailService, err := services.NewEmailService(smtpMailer, logger)
	if err != nil {
		return nil, nil, err
	}

	monitor := services.NewMonitorService(opRepo, branchRepo, deptRepo, delayLogRepo, emailService, cfg, logger)
	consolidated := services.NewConsolidatedService(settingsRepo, emailService, cfg, logger)
	weekly := services.NewWeeklyService(delayLogRepo, settingsRepo, emailService, cfg, logger)

	return services.NewRunner(monitor, consolidated, weekly, logger), runLock, nil
}

func serve(cfg *config.Config, runner *services.Runner, runLock repositories.RunLockRepositoryInterface, logger *zap.Logger) error {
	cronJobs, err := jobs.NewCron(cfg.Schedule, runner, runLock, logger)
	if err != nil {
		return fmt.Errorf("настройка расписания: %w", err)
	}
	cronJobs.Start()
	defer cronJobs.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	routes.InitRouter(e, runner, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(":" + cfg.Server.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		logger.Info("получен сигнал остановки, завершение демона")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// runMigrations применяет goose-миграции схемы хранилища конфигурации
// через database/sql поверх pgx.
func runMigrations(cfg *config.Config) error {
	db, err := sql.Open("pgx", cfg.Postgres.ConfigDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
