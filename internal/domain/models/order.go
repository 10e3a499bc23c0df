package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus – состояние заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal – из PAID и CANCELLED переходов нет
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по жизненному циклу заказа.
// PENDING -> PENDING допустим (повторное pending-уведомление ничего не меняет).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	switch next {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// Order – часть checkout'а, относящаяся к одной точке.
// Несколько заказов одного checkout'а делят PaymentGroupID и GatewayToken.
type Order struct {
	ID                 uuid.UUID   `json:"id"`
	OrderCode          string      `json:"orderCode"`
	PaymentGroupID     *string     `json:"paymentGroupId,omitempty"`
	UserID             uuid.UUID   `json:"userId"`
	OutletID           uuid.UUID   `json:"outletId"`
	OutletName         string      `json:"outletName,omitempty"` // заполняется через JOIN
	TotalAmount        int64       `json:"totalAmount"`
	NetAmount          int64       `json:"netAmount"`
	PaymentMethod      string      `json:"paymentMethod"`
	GatewayToken       string      `json:"gatewayToken"`
	GatewayRedirectURL string      `json:"gatewayRedirectUrl"`
	Status             OrderStatus `json:"status"`
	ItemCount          int         `json:"itemCount,omitempty"`
	Items              []OrderItem `json:"items,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// OrderItem – снимок варианта на момент заказа, после создания не меняется
type OrderItem struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"orderId"`
	VariantID       uuid.UUID `json:"variantId"`
	VariantName     string    `json:"variantName,omitempty"`
	ProductName     string    `json:"productName,omitempty"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase int64     `json:"priceAtPurchase"`
	Subtotal        int64     `json:"subtotal"`
}

// NewOrderItem считает subtotal от цены на момент покупки
func NewOrderItem(variantID uuid.UUID, quantity int, price int64) OrderItem {
	return OrderItem{
		VariantID:       variantID,
		Quantity:        quantity,
		PriceAtPurchase: price,
		Subtotal:        price * int64(quantity),
	}
}

// SumSubtotals – сумма позиций, из неё берётся total заказа
func SumSubtotals(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal
	}
	return total
}

// StockConsumption – сколько базовых единиц списать с товара при оплате
type StockConsumption struct {
	ProductID       uuid.UUID
	Quantity        int
	StockMultiplier int
}

// Units возвращает количество × множитель
func (c StockConsumption) Units() int {
	return c.Quantity * c.StockMultiplier
}
