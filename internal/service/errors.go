package service

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/linemk/outlet-shop/internal/storage"
)

// ошибки сервисного слоя, транспорт сопоставляет их со статусами через errors.Is
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("payment gateway unavailable")
)

// classify переводит ошибку хранилища в ошибку сервисного слоя, для остальных возвращает nil
func classify(err error) error {
	switch {
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrVariantNotFound),
		errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrOutletNotFound),
		errors.Is(err, storage.ErrCartNotFound),
		errors.Is(err, storage.ErrCartItemNotFound),
		errors.Is(err, storage.ErrOrderNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrUserExists), storage.IsUniqueViolation(err):
		return ErrConflict
	}
	return nil
}

func rollback(logger *slog.Logger, tx *sql.Tx) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
