package storage

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrVariantNotFound  = errors.New("product variant not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOutletNotFound   = errors.New("outlet not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")
)

// коды ошибок postgres
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

// IsUniqueViolation – нарушение UNIQUE-ограничения (23505)
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}
