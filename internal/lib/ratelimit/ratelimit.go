package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/linemk/outlet-shop/internal/lib/api/response"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:"

// Middleware ограничивает число запросов с одного IP в фиксированном окне.
// Счётчик живёт в redis, поэтому лимит общий для всех инстансов.
func Middleware(log *slog.Logger, rdb *redis.Client, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "ratelimit.Middleware"
			ctx := r.Context()
			key := keyPrefix + clientIP(r)

			// INCR и EXPIRE NX в одной транзакции: ключ без TTL не останется,
			// даже если соединение оборвётся между командами
			var incr *redis.IntCmd
			_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				pipe.ExpireNX(ctx, key, window)
				return nil
			})
			if err != nil {
				// redis недоступен – не блокируем пользователей
				log.Error("rate limiter unavailable", slog.String("op", op), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			current := incr.Val()

			if current > int64(limit) {
				log.Warn("rate limit exceeded", slog.String("op", op), slog.String("key", key))
				response.Error(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
