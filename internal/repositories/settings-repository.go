package repositories

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "eod-monitor/pkg/errors"
)

const settingsTable = "system_settings"

type SettingsRepositoryInterface interface {
	// RecipientGroup возвращает именованный список адресов.
	// Отсутствующий ключ — это пустой список, а не ошибка.
	RecipientGroup(ctx context.Context, key string) ([]string, error)
}

type settingsRepository struct{ storage *pgxpool.Pool }

func NewSettingsRepository(storage *pgxpool.Pool) SettingsRepositoryInterface {
	return &settingsRepository{storage: storage}
}

func (r *settingsRepository) RecipientGroup(ctx context.Context, key string) ([]string, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("value").
		From(settingsTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var value []string
	err = r.storage.QueryRow(ctx, query, args...).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperrors.NewConnectivityError("config", err)
	}
	return value, nil
}
