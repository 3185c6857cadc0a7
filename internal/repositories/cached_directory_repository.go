package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eod-monitor/internal/entities"
	applogger "eod-monitor/pkg/logger"
)

// Read-through кеш для справочника единиц. Справочник читается по разу на
// каждую группу инцидентов, поэтому TTL подобран под длительность запуска.
// Любая ошибка кеша деградирует до прямого чтения из хранилища и никогда
// не прерывает запуск.

const directoryCacheTTL = 10 * time.Minute

type cachedBranchRepository struct {
	inner  BranchRepositoryInterface
	cache  CacheRepositoryInterface
	logger *zap.Logger
}

func NewCachedBranchRepository(inner BranchRepositoryInterface, cache CacheRepositoryInterface, logger *zap.Logger) BranchRepositoryInterface {
	return &cachedBranchRepository{inner: inner, cache: cache, logger: logger}
}

func (r *cachedBranchRepository) FindBranch(ctx context.Context, code uint64) (*entities.Branch, error) {
	key := fmt.Sprintf("eod:branch:%d", code)

	if raw, err := r.cache.Get(ctx, key); err == nil {
		var b entities.Branch
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			return &b, nil
		}
		// Битая запись в кеше — убираем и идём в хранилище.
		_ = r.cache.Del(ctx, key)
	}

	b, err := r.inner.FindBranch(ctx, code)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(b); err == nil {
		if err := r.cache.Set(ctx, key, string(raw), directoryCacheTTL); err != nil {
			applogger.FromContext(ctx, r.logger).Warn("не удалось закешировать branch", zap.Uint64("code", code), zap.Error(err))
		}
	}
	return b, nil
}

type cachedDepartmentRepository struct {
	inner  DepartmentRepositoryInterface
	cache  CacheRepositoryInterface
	logger *zap.Logger
}

func NewCachedDepartmentRepository(inner DepartmentRepositoryInterface, cache CacheRepositoryInterface, logger *zap.Logger) DepartmentRepositoryInterface {
	return &cachedDepartmentRepository{inner: inner, cache: cache, logger: logger}
}

func (r *cachedDepartmentRepository) FindDepartment(ctx context.Context, id string) (*entities.Department, error) {
	key := "eod:department:" + id

	if raw, err := r.cache.Get(ctx, key); err == nil {
		var d entities.Department
		if err := json.Unmarshal([]byte(raw), &d); err == nil {
			return &d, nil
		}
		_ = r.cache.Del(ctx, key)
	}

	d, err := r.inner.FindDepartment(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(d); err == nil {
		if err := r.cache.Set(ctx, key, string(raw), directoryCacheTTL); err != nil {
			applogger.FromContext(ctx, r.logger).Warn("не удалось закешировать department", zap.String("id", id), zap.Error(err))
		}
	}
	return d, nil
}
