package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// типы событий, которые уходят в Kafka через outbox
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OutboxEvent – событие, записанное в той же транзакции, что и изменение заказа
type OutboxEvent struct {
	ID          int64           `json:"id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
}

// OrderEventPayload – тело событий по заказу
type OrderEventPayload struct {
	OrderID        uuid.UUID   `json:"order_id"`
	OrderCode      string      `json:"order_code"`
	PaymentGroupID string      `json:"payment_group_id,omitempty"`
	UserID         uuid.UUID   `json:"user_id"`
	OutletID       uuid.UUID   `json:"outlet_id"`
	Status         OrderStatus `json:"status"`
	TotalAmount    int64       `json:"total_amount"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
