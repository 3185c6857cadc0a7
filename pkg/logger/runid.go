// Файл: pkg/logger/runid.go
package logger

import (
	"context"

	"go.uber.org/zap"
)

type runIDKey struct{}

// WithRunID привязывает идентификатор запуска к контексту. Сервисы и
// репозитории добавляют его в каждую строку лога, чтобы трассировка
// одного запуска собиралась по единому полю run_id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// FromContext возвращает логгер с полем run_id, если запуск привязан к
// контексту, иначе базовый логгер без изменений.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return base.With(zap.String("run_id", id))
	}
	return base
}
