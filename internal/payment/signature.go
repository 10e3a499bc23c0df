package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/linemk/outlet-shop/internal/domain/models"
)

// Signature считает SHA512(order_id + status_code + gross_amount + server_key) в hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature проверяет signature_key уведомления.
func VerifySignature(n *models.PaymentNotification, serverKey string) bool {
	if n == nil || n.SignatureKey == "" {
		return false
	}
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(n.SignatureKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
