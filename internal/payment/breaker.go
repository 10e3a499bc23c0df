package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway перестаёт ходить в шлюз после серии ошибок подряд.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[*Transaction]
}

func NewBreakerGateway(log *slog.Logger, next Gateway, failures uint32, timeout time.Duration) *BreakerGateway {
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &BreakerGateway{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Transaction](settings),
	}
}

func (b *BreakerGateway) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	tx, err := b.cb.Execute(func() (*Transaction, error) {
		return b.next.CreateTransaction(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return tx, err
}

// Status – состояние предохранителя: "closed", "half-open" или "open".
func (b *BreakerGateway) Status() string {
	return b.cb.State().String()
}
