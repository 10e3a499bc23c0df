package models

import "github.com/google/uuid"

// Outlet представляет торговую точку, которая исполняет заказы
type Outlet struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"` // короткий код, участвует в номере счёта
	Name string    `json:"name"`
}

// Product – товар точки, stock хранится в базовых единицах
type Product struct {
	ID       uuid.UUID `json:"id"`
	OutletID uuid.UUID `json:"outlet_id"`
	Name     string    `json:"name"`
	Stock    int       `json:"stock"`
}

// ProductVariant – вариант товара (фасовка), который кладут в корзину.
// StockMultiplier – сколько базовых единиц stock уходит на одну проданную единицу варианта.
type ProductVariant struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	Price           int64     `json:"price"`
	StockMultiplier int       `json:"stock_multiplier"`
}

// VariantWithOutlet – вариант вместе с товаром и точкой, результат JOIN variant → product → outlet
type VariantWithOutlet struct {
	Variant     ProductVariant
	ProductName string
	Outlet      Outlet
}

// ProductWithVariants – товар с названием точки и всеми фасовками, отдаётся каталогом
type ProductWithVariants struct {
	Product
	OutletName string           `json:"outlet_name"`
	Variants   []ProductVariant `json:"variants"`
}

// OutletDetail – точка вместе с её товарами
type OutletDetail struct {
	Outlet
	Products []*ProductWithVariants `json:"products"`
}
