package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
)

// CartCache хранит собранную корзину пользователя, чтобы не делать JOIN на каждый GET.
//
// Запись защищена поколением: читатель берёт Version до чтения из БД и передаёт его в Set.
// Delete увеличивает поколение, поэтому корзина, прочитанная до изменения, в кэш уже не попадёт.
type CartCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Version(ctx context.Context, userID uuid.UUID) (int64, error)
	// Set возвращает ErrStaleCart, если с момента Version корзину инвалидировали.
	Set(ctx context.Context, userID uuid.UUID, cart *models.Cart, version int64) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrStaleCart = errors.New("cart changed while loading")
)
