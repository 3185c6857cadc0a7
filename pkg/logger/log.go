package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// NewLogger собирает двойной логгер: консоль + файл.
// Каталог для логов создаётся заранее, иначе zap не сможет открыть файл.
func NewLogger(logDir string) *zap.Logger {
	if logDir == "" {
		logDir = "./logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		panic(err)
	}

	dualConfig := zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		OutputPaths:      []string{"stdout", filepath.Join(logDir, "eod-monitor.log")},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}

	dualLogger, err := dualConfig.Build()
	if err != nil {
		panic(err)
	}

	return dualLogger
}
