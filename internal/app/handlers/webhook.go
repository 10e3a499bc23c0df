package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/lib/api/response"
	"github.com/linemk/outlet-shop/internal/service"
)

// PaymentWebhookHandler обрабатывает POST /api/payments/webhook.
// Шлюз повторяет уведомление, пока не получит 200, поэтому на успех отвечаем простым "OK".
func PaymentWebhookHandler(log *slog.Logger, webhookService service.WebhookService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentWebhookHandler"
		logger := log.With(slog.String("op", op))

		var n models.PaymentNotification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			logger.Error("invalid notification: decoding error", slog.Any("error", err))
			response.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		logger = logger.With(slog.String("correlationID", n.OrderID))
		if err := validate.Struct(n); err != nil {
			logger.Error("invalid notification: validation error", slog.Any("error", err))
			response.Error(w, http.StatusUnprocessableEntity, "validation error")
			return
		}

		if _, err := webhookService.HandleNotification(r.Context(), &n); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				logger.Warn("order not found for notification", slog.Any("error", err))
				response.Error(w, http.StatusNotFound, "order not found")
				return
			}
			writeServiceError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write response", slog.Any("error", err))
		}
	}
}
