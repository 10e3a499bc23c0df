package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/outlet-shop/internal/lib/api/response"
)

// Pinger – то, что умеет проверить соединение (*sql.DB)
type Pinger interface {
	PingContext(ctx context.Context) error
}

// GatewayStatus отдаёт состояние предохранителя платёжного шлюза
type GatewayStatus interface {
	Status() string
}

// HealthHandler обрабатывает GET /health. Открытый предохранитель шлюза
// не делает сервис нездоровым: корзина и заказы продолжают работать.
func HealthHandler(log *slog.Logger, db Pinger, gateway GatewayStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			log.Error("health check failed", slog.String("op", "handlers.HealthHandler"), slog.Any("error", err))
			response.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		status := map[string]string{"database": "up"}
		if gateway != nil {
			status["payment_gateway"] = gateway.Status()
		}
		writeJSON(w, log, http.StatusOK, "ok", status)
	}
}
