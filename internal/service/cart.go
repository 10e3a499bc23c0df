package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/cache"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/storage"
	"golang.org/x/sync/singleflight"
)

// CartService – операции с корзиной пользователя.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type cartService struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
	cache    cache.CartCache
	sfg      singleflight.Group // одновременные промахи кэша по одному пользователю идут в БД один раз
}

// NewCartService создаёт сервис корзины. cartCache может быть nil.
func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, cartCache cache.CartCache) CartService {
	return &cartService{
		log:      log,
		cartRepo: cartRepo,
		cache:    cartCache,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	const op = "service.CartService.GetCart"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID.String()))

	// общая загрузка не должна падать из-за отмены запроса, который её начал
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := s.sfg.Do(userID.String(), func() (any, error) {
		return s.loadCart(loadCtx, logger, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if shared {
		logger.Debug("cart load shared with concurrent request")
	}
	return v.(*models.Cart), nil
}

func (s *cartService) loadCart(ctx context.Context, logger *slog.Logger, userID uuid.UUID) (*models.Cart, error) {
	if s.cache != nil {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			logger.Debug("cart served from cache")
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("cart cache read failed", slog.Any("error", err))
		}
	}

	// поколение фиксируется до чтения из БД
	cacheable := false
	var version int64
	if s.cache != nil {
		v, err := s.cache.Version(ctx, userID)
		if err != nil {
			logger.Warn("cart cache version read failed", slog.Any("error", err))
		} else {
			version, cacheable = v, true
		}
	}

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrCartNotFound) {
			logger.Error("failed to get cart", slog.Any("error", err))
			return nil, fmt.Errorf("failed to get cart: %w", err)
		}
		// корзины ещё нет, это не ошибка
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}

	if cacheable {
		err := s.cache.Set(ctx, userID, cart, version)
		switch {
		case errors.Is(err, cache.ErrStaleCart):
			logger.Debug("cart changed during load, cache write skipped")
		case err != nil:
			logger.Warn("cart cache write failed", slog.Any("error", err))
		}
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.CartItem, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID.String()),
		slog.String("variantID", variantID.String()),
	)

	if quantity < 1 {
		return nil, fmt.Errorf("%s: quantity must be at least 1: %w", op, ErrValidation)
	}

	cartID, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		logger.Error("failed to get or create cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get or create cart: %w", op, err)
	}

	item, err := s.cartRepo.UpsertItem(ctx, cartID, variantID, quantity)
	if err != nil {
		if kind := classify(err); kind != nil {
			logger.Warn("failed to add item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w: %w", op, kind, err)
		}
		logger.Error("failed to add item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add item: %w", op, err)
	}

	s.invalidate(ctx, logger, userID)
	logger.Info("item added to cart", slog.Int("quantity", item.Quantity))
	return item, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	const op = "service.CartService.UpdateItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID.String()),
		slog.String("itemID", itemID.String()),
	)

	if quantity < 1 {
		return nil, fmt.Errorf("%s: quantity must be at least 1: %w", op, ErrValidation)
	}

	item, err := s.cartRepo.UpdateItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		if kind := classify(err); kind != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, kind, err)
		}
		logger.Error("failed to update item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update item: %w", op, err)
	}

	s.invalidate(ctx, logger, userID)
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID.String()),
		slog.String("itemID", itemID.String()),
	)

	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if kind := classify(err); kind != nil {
			return fmt.Errorf("%s: %w: %w", op, kind, err)
		}
		logger.Error("failed to remove item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to remove item: %w", op, err)
	}

	s.invalidate(ctx, logger, userID)
	return nil
}

func (s *cartService) invalidate(ctx context.Context, logger *slog.Logger, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		logger.Warn("cart cache invalidation failed", slog.Any("error", err))
	}
}
