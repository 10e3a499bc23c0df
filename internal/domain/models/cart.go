package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart – корзина пользователя, у пользователя ровно одна корзина
type Cart struct {
	ID     uuid.UUID  `json:"cartId"`
	UserID uuid.UUID  `json:"-"`
	Items  []CartItem `json:"items"`
}

// CartItem – позиция корзины, уникальна в пределах (cart, variant)
type CartItem struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cartId"`
	VariantID uuid.UUID `json:"variantId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`

	// поля ниже заполняются через JOIN и нужны только для отображения
	VariantName string `json:"variantName,omitempty"`
	ProductName string `json:"productName,omitempty"`
	OutletName  string `json:"outletName,omitempty"`
	Price       int64  `json:"price,omitempty"`
}

// CartCheckoutLine – позиция корзины, разрешённая до варианта, товара и точки
type CartCheckoutLine struct {
	CartItemID uuid.UUID
	Quantity   int
	VariantWithOutlet
}
