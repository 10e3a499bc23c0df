package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/storage"
)

// OrderService определяет чтение заказов пользователя.
type OrderService interface {
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
	}
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"
	s.log.Info("listing orders", slog.String("op", op), slog.String("userID", userID.String()))

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.orderRepo.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		if kind := classify(err); kind != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, kind, err)
		}
		s.log.Error("failed to get order",
			slog.String("op", op),
			slog.String("orderID", orderID.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	return order, nil
}
