package models

// PaymentOutcome – что делать с группой заказов по уведомлению шлюза
type PaymentOutcome int

const (
	// OutcomeIgnore – неизвестный статус: состояние не меняем, но отвечаем OK
	OutcomeIgnore PaymentOutcome = iota
	OutcomePaid
	OutcomeCancelled
	OutcomePending
)

func (o PaymentOutcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomePending:
		return "pending"
	}
	return "ignored"
}

// TargetStatus – статус заказа для исхода, false для OutcomeIgnore
func (o PaymentOutcome) TargetStatus() (OrderStatus, bool) {
	switch o {
	case OutcomePaid:
		return OrderStatusPaid, true
	case OutcomeCancelled:
		return OrderStatusCancelled, true
	case OutcomePending:
		return OrderStatusPending, true
	}
	return "", false
}

// PaymentNotification – уведомление шлюза об изменении статуса транзакции
type PaymentNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// Outcome сопоставляет словарь шлюза с исходом. Сравнение регистрозависимое.
func (n PaymentNotification) Outcome() PaymentOutcome {
	switch n.TransactionStatus {
	case "settlement":
		return OutcomePaid
	case "capture":
		if n.FraudStatus == "accept" || n.FraudStatus == "" {
			return OutcomePaid
		}
		return OutcomeIgnore
	case "cancel", "deny", "expire":
		return OutcomeCancelled
	case "pending":
		return OutcomePending
	}
	return OutcomeIgnore
}
