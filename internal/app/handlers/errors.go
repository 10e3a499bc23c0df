package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/outlet-shop/internal/lib/api/response"
	"github.com/linemk/outlet-shop/internal/service"
)

var validate = validator.New()

// writeServiceError сопоставляет ошибку сервиса со статусом. Детали внутренних ошибок остаются в логах.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		logger.Warn("unauthorized", slog.Any("error", err))
		response.Error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrValidation):
		logger.Warn("validation failed", slog.Any("error", err))
		response.Error(w, http.StatusUnprocessableEntity, "validation error")
	case errors.Is(err, service.ErrNotFound):
		logger.Info("not found", slog.Any("error", err))
		response.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		logger.Warn("conflict", slog.Any("error", err))
		response.Error(w, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrExternalService):
		logger.Error("external service error", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "payment gateway unavailable")
	default:
		logger.Error("internal error", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeAndValidate разбирает тело запроса: битый JSON даёт 400, ошибки валидации 422.
// Возвращает false, если ответ уже записан.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		response.Error(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		response.Error(w, http.StatusUnprocessableEntity, "validation error")
		return false
	}
	return true
}

func userFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func uuidParam(w http.ResponseWriter, logger *slog.Logger, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("invalid path parameter", slog.String("param", name), slog.String("value", raw))
		response.Error(w, http.StatusUnprocessableEntity, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, message string, data any) {
	if err := response.JSON(w, code, message, data); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}
