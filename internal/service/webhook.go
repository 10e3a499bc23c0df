package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/linemk/outlet-shop/internal/payment"
	"github.com/linemk/outlet-shop/internal/storage"
)

// WebhookService применяет уведомления платёжного шлюза к группе заказов.
type WebhookService interface {
	HandleNotification(ctx context.Context, n *models.PaymentNotification) (models.PaymentOutcome, error)
}

type webhookService struct {
	log           *slog.Logger
	db            *sql.DB
	orderRepo     storage.OrderStorage
	catalogRepo   storage.CatalogStorage
	outboxRepo    storage.OutboxStorage
	metrics       *metrics.Metrics
	serverKey     string
	skipSignature bool
}

func NewWebhookService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	catalogRepo storage.CatalogStorage,
	outboxRepo storage.OutboxStorage,
	m *metrics.Metrics,
	serverKey string,
	skipSignature bool,
) WebhookService {
	return &webhookService{
		log:           log,
		db:            db,
		orderRepo:     orderRepo,
		catalogRepo:   catalogRepo,
		outboxRepo:    outboxRepo,
		metrics:       m,
		serverKey:     serverKey,
		skipSignature: skipSignature,
	}
}

// HandleNotification блокирует все заказы группы, переводит подходящие в новый статус
// и при оплате один раз списывает остатки. Повторные уведомления ничего не меняют.
func (s *webhookService) HandleNotification(ctx context.Context, n *models.PaymentNotification) (models.PaymentOutcome, error) {
	const op = "service.WebhookService.HandleNotification"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("correlationID", n.OrderID),
		slog.String("transactionStatus", n.TransactionStatus),
		slog.String("fraudStatus", n.FraudStatus),
	)
	logger.Info("payment notification received")

	if n.OrderID == "" || n.TransactionStatus == "" {
		return models.OutcomeIgnore, fmt.Errorf("%s: order_id and transaction_status are required: %w", op, ErrValidation)
	}
	if !s.skipSignature && !payment.VerifySignature(n, s.serverKey) {
		logger.Warn("invalid notification signature")
		return models.OutcomeIgnore, fmt.Errorf("%s: invalid signature: %w", op, ErrUnauthorized)
	}

	outcome := n.Outcome()
	logger = logger.With(slog.String("outcome", outcome.String()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return outcome, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	orders, err := s.orderRepo.LockOrdersByReferenceTx(ctx, tx, n.OrderID)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to load orders", slog.Any("error", err))
		return outcome, fmt.Errorf("%s: failed to load orders: %w", op, err)
	}
	if len(orders) == 0 {
		rollback(logger, tx)
		logger.Warn("no orders for notification")
		return outcome, fmt.Errorf("%s: no orders for %q: %w", op, n.OrderID, ErrNotFound)
	}

	// группа уже оплачена: повторное уведомление подтверждаем без изменений
	for _, o := range orders {
		if o.Status == models.OrderStatusPaid {
			rollback(logger, tx)
			logger.Info("payment group already paid, skipping")
			s.metrics.ObserveNotification("duplicate")
			return outcome, nil
		}
	}

	target, ok := outcome.TargetStatus()
	if !ok {
		rollback(logger, tx)
		logger.Info("notification status ignored")
		s.metrics.ObserveNotification(outcome.String())
		return outcome, nil
	}

	// PENDING -> PENDING не меняет строку, CANCELLED остаётся CANCELLED
	var movable []*models.Order
	for _, o := range orders {
		if o.Status != target && o.Status.CanTransitionTo(target) {
			movable = append(movable, o)
		}
	}
	if len(movable) == 0 {
		rollback(logger, tx)
		logger.Info("no orders need a status change", slog.String("target", string(target)))
		s.metrics.ObserveNotification(outcome.String())
		return outcome, nil
	}

	ids := make([]uuid.UUID, 0, len(movable))
	for _, o := range movable {
		ids = append(ids, o.ID)
	}
	updated, err := s.orderRepo.UpdateStatusTx(ctx, tx, ids, models.OrderStatusPending, target)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to update order status", slog.Any("error", err))
		return outcome, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}
	if updated != int64(len(ids)) {
		logger.Warn("unexpected number of updated orders",
			slog.Int("expected", len(ids)),
			slog.Int64("updated", updated),
		)
	}

	if target == models.OrderStatusPaid {
		if err := s.decrementStock(ctx, tx, ids); err != nil {
			rollback(logger, tx)
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return outcome, fmt.Errorf("%s: %w", op, err)
		}
	}

	eventType := models.EventOrderCancelled
	if target == models.OrderStatusPaid {
		eventType = models.EventOrderPaid
	}
	for _, o := range movable {
		if err := writeOrderEvent(ctx, s.outboxRepo, tx, o, eventType, target); err != nil {
			rollback(logger, tx)
			logger.Error("failed to write outbox event", slog.Any("error", err))
			return outcome, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return outcome, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	s.metrics.ObserveNotification(outcome.String())
	logger.Info("orders updated", slog.Int("count", len(ids)), slog.String("status", string(target)))
	return outcome, nil
}

// decrementStock списывает количество × множитель, суммируя по товару.
func (s *webhookService) decrementStock(ctx context.Context, tx *sql.Tx, orderIDs []uuid.UUID) error {
	items, err := s.orderRepo.GetStockConsumptionTx(ctx, tx, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	var products []uuid.UUID
	units := make(map[uuid.UUID]int)
	for _, it := range items {
		if _, seen := units[it.ProductID]; !seen {
			products = append(products, it.ProductID)
		}
		units[it.ProductID] += it.Units()
	}

	for _, productID := range products {
		if err := s.catalogRepo.DecrementStockTx(ctx, tx, productID, units[productID]); err != nil {
			return fmt.Errorf("failed to decrement stock for product %s: %w", productID, err)
		}
	}
	return nil
}
