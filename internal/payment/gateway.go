package payment

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable возвращается, когда шлюз не ответил или breaker открыт.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway создаёт платёжную сессию на всю группу заказов одним запросом.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
}

// LineItem – один заказ группы в детализации платежа.
type LineItem struct {
	ID     string
	Name   string
	Amount int64
}

type TransactionRequest struct {
	// PaymentGroupID уходит в шлюз как order_id и возвращается в уведомлениях
	PaymentGroupID string
	GrossAmount    int64
	PaymentMethod  string
	CustomerName   string
	CustomerEmail  string
	Items          []LineItem
}

type Transaction struct {
	Token       string
	RedirectURL string
}
