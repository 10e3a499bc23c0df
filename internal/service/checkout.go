package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/cache"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/linemk/outlet-shop/internal/payment"
	"github.com/linemk/outlet-shop/internal/storage"
)

const defaultPaymentMethod = "qris"

// CheckoutService превращает выбранные позиции в заказы по точкам с одной платёжной сессией.
type CheckoutService interface {
	// CheckoutCart оформляет выбранные позиции корзины и удаляет их из неё.
	CheckoutCart(ctx context.Context, userID uuid.UUID, cartItemIDs []uuid.UUID, paymentMethod string) (*CheckoutResult, error)
	// CheckoutDirect оформляет покупку "купить сейчас" без корзины.
	CheckoutDirect(ctx context.Context, userID uuid.UUID, items []DirectItem, paymentMethod string) (*CheckoutResult, error)
}

type DirectItem struct {
	VariantID uuid.UUID
	Quantity  int
}

// CheckoutResult – заказы одной группы оплаты и данные платёжной сессии.
type CheckoutResult struct {
	PaymentGroupID string          `json:"paymentGroupId"`
	Token          string          `json:"token"`
	RedirectURL    string          `json:"redirectUrl"`
	GrossAmount    int64           `json:"grossAmount"`
	Orders         []*models.Order `json:"orders"`
}

// CheckoutDeps – зависимости checkout-сервиса.
type CheckoutDeps struct {
	DB            *sql.DB
	Users         storage.UserStorage
	Catalog       storage.CatalogStorage
	Carts         storage.CartStorage
	Orders        storage.OrderStorage
	Outbox        storage.OutboxStorage
	Gateway       payment.Gateway
	CartCache     cache.CartCache
	Metrics       *metrics.Metrics
	DefaultMethod string
}

type checkoutService struct {
	log *slog.Logger
	CheckoutDeps
	now func() time.Time
}

func NewCheckoutService(log *slog.Logger, deps CheckoutDeps) CheckoutService {
	if deps.DefaultMethod == "" {
		deps.DefaultMethod = defaultPaymentMethod
	}
	return &checkoutService{
		log:          log,
		CheckoutDeps: deps,
		now:          time.Now,
	}
}

type sourceKind int

const (
	sourceCart sourceKind = iota
	sourceDirect
)

func (k sourceKind) String() string {
	if k == sourceCart {
		return "cart"
	}
	return "direct"
}

// lineSource – откуда берутся позиции: выбранные строки корзины или пары (вариант, количество).
type lineSource struct {
	kind        sourceKind
	cartItemIDs []uuid.UUID
	items       []DirectItem
}

// resolvedLine – позиция с разрешёнными вариантом, товаром и точкой.
type resolvedLine struct {
	cartItemID uuid.UUID // uuid.Nil для покупки без корзины
	quantity   int
	variant    models.VariantWithOutlet
}

func (l resolvedLine) subtotal() int64 {
	return l.variant.Variant.Price * int64(l.quantity)
}

// outletBucket – позиции одной точки, из них получается один заказ
type outletBucket struct {
	outlet models.Outlet
	lines  []resolvedLine
}

func (s *checkoutService) CheckoutCart(ctx context.Context, userID uuid.UUID, cartItemIDs []uuid.UUID, paymentMethod string) (*CheckoutResult, error) {
	return s.checkout(ctx, userID, lineSource{kind: sourceCart, cartItemIDs: cartItemIDs}, paymentMethod)
}

func (s *checkoutService) CheckoutDirect(ctx context.Context, userID uuid.UUID, items []DirectItem, paymentMethod string) (*CheckoutResult, error) {
	return s.checkout(ctx, userID, lineSource{kind: sourceDirect, items: items}, paymentMethod)
}

func (s *checkoutService) checkout(ctx context.Context, userID uuid.UUID, src lineSource, paymentMethod string) (*CheckoutResult, error) {
	lines, err := s.resolve(ctx, userID, src)
	if err != nil {
		s.Metrics.ObserveCheckout(src.kind.String(), "rejected")
		return nil, err
	}

	res, err := s.placeOrders(ctx, userID, src, lines, paymentMethod)
	if err != nil {
		s.Metrics.ObserveCheckout(src.kind.String(), "failed")
		return nil, err
	}
	s.Metrics.ObserveCheckout(src.kind.String(), "success")
	return res, nil
}

// resolve приводит оба источника к одному списку позиций.
func (s *checkoutService) resolve(ctx context.Context, userID uuid.UUID, src lineSource) ([]resolvedLine, error) {
	const op = "service.CheckoutService.resolve"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID.String()),
		slog.String("source", src.kind.String()),
	)

	switch src.kind {
	case sourceCart:
		if len(src.cartItemIDs) == 0 {
			return nil, fmt.Errorf("%s: no cart items selected: %w", op, ErrValidation)
		}
		owned, err := s.Carts.GetOwnedLinesForCheckout(ctx, userID, src.cartItemIDs)
		if err != nil {
			logger.Error("failed to load cart lines", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to load cart lines: %w", op, err)
		}
		// чужие позиции отсекаются запросом, пустой результат значит нечего оформлять
		if len(owned) == 0 {
			logger.Warn("no owned cart items match the selection", slog.Int("requested", len(src.cartItemIDs)))
			return nil, fmt.Errorf("%s: selected cart items not found: %w", op, ErrNotFound)
		}
		lines := make([]resolvedLine, 0, len(owned))
		for _, l := range owned {
			lines = append(lines, resolvedLine{
				cartItemID: l.CartItemID,
				quantity:   l.Quantity,
				variant:    l.VariantWithOutlet,
			})
		}
		return lines, nil

	case sourceDirect:
		merged, err := mergeDirectItems(src.items)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids := make([]uuid.UUID, 0, len(merged))
		for _, it := range merged {
			ids = append(ids, it.VariantID)
		}
		variants, err := s.Catalog.GetVariantsByIDs(ctx, ids)
		if err != nil {
			logger.Error("failed to load variants", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to load variants: %w", op, err)
		}
		byID := make(map[uuid.UUID]*models.VariantWithOutlet, len(variants))
		for _, v := range variants {
			byID[v.Variant.ID] = v
		}
		lines := make([]resolvedLine, 0, len(merged))
		for _, it := range merged {
			v, ok := byID[it.VariantID]
			if !ok {
				logger.Warn("variant not found", slog.String("variantID", it.VariantID.String()))
				return nil, fmt.Errorf("%s: variant %s: %w", op, it.VariantID, ErrNotFound)
			}
			lines = append(lines, resolvedLine{quantity: it.Quantity, variant: *v})
		}
		return lines, nil
	}

	return nil, fmt.Errorf("%s: unknown line source %d", op, src.kind)
}

// mergeDirectItems складывает количества повторяющихся вариантов, сохраняя порядок первого появления.
func mergeDirectItems(items []DirectItem) ([]DirectItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items: %w", ErrValidation)
	}
	merged := make([]DirectItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
		}
		if i, ok := index[it.VariantID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.VariantID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

// groupByOutlet раскладывает позиции по точкам в порядке первого появления точки.
func groupByOutlet(lines []resolvedLine) []*outletBucket {
	var buckets []*outletBucket
	index := make(map[uuid.UUID]*outletBucket)
	for _, l := range lines {
		b, ok := index[l.variant.Outlet.ID]
		if !ok {
			b = &outletBucket{outlet: l.variant.Outlet}
			index[l.variant.Outlet.ID] = b
			buckets = append(buckets, b)
		}
		b.lines = append(b.lines, l)
	}
	return buckets
}

// orderCode – INV-<OUTLET>-<YYYYMMDD>-<первые 8 символов группы>-<NN>
func orderCode(outletCode string, at time.Time, paymentGroupID string, n int) string {
	group := strings.ReplaceAll(paymentGroupID, "-", "")
	if len(group) > 8 {
		group = group[:8]
	}
	return fmt.Sprintf("INV-%s-%s-%s-%02d",
		strings.ToUpper(outletCode),
		at.Format("20060102"),
		strings.ToUpper(group),
		n,
	)
}

// placeOrders – общий путь для обоих источников: группировка, платёжная сессия, запись заказов.
func (s *checkoutService) placeOrders(ctx context.Context, userID uuid.UUID, src lineSource, lines []resolvedLine, paymentMethod string) (*CheckoutResult, error) {
	const op = "service.CheckoutService.placeOrders"
	paymentGroupID := uuid.NewString()
	logger := s.log.With(
		slog.String("op", op),
		slog.String("userID", userID.String()),
		slog.String("paymentGroupID", paymentGroupID),
		slog.String("source", src.kind.String()),
	)

	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			logger.Error("failed to get user", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
		}
		// без записи пользователя работают значения по умолчанию
		logger.Warn("user record not found, using default customer details")
	}

	method := strings.TrimSpace(paymentMethod)
	if method == "" {
		method = s.DefaultMethod
	}

	now := s.now()
	buckets := groupByOutlet(lines)
	orders := make([]*models.Order, 0, len(buckets))
	gatewayItems := make([]payment.LineItem, 0, len(buckets))
	var gross int64
	for i, b := range buckets {
		items := make([]models.OrderItem, 0, len(b.lines))
		for _, l := range b.lines {
			items = append(items, models.NewOrderItem(l.variant.Variant.ID, l.quantity, l.variant.Variant.Price))
		}
		total := models.SumSubtotals(items)
		gross += total

		groupID := paymentGroupID
		order := &models.Order{
			OrderCode:      orderCode(b.outlet.Code, now, paymentGroupID, i+1),
			PaymentGroupID: &groupID,
			UserID:         userID,
			OutletID:       b.outlet.ID,
			OutletName:     b.outlet.Name,
			TotalAmount:    total,
			NetAmount:      total,
			PaymentMethod:  method,
			Status:         models.OrderStatusPending,
			ItemCount:      len(items),
			Items:          items,
		}
		orders = append(orders, order)
		gatewayItems = append(gatewayItems, payment.LineItem{
			ID:     order.OrderCode,
			Name:   b.outlet.Name + " " + order.OrderCode,
			Amount: total,
		})
	}

	logger.Info("creating payment session",
		slog.Int("orders", len(orders)),
		slog.Int64("grossAmount", gross),
		slog.String("paymentMethod", method),
	)

	// внешний вызов до транзакции, чтобы не держать блокировки на время сетевого запроса
	trx, err := s.Gateway.CreateTransaction(ctx, payment.TransactionRequest{
		PaymentGroupID: paymentGroupID,
		GrossAmount:    gross,
		PaymentMethod:  method,
		CustomerName:   user.DisplayName(),
		CustomerEmail:  user.ContactEmail(),
		Items:          gatewayItems,
	})
	if err != nil {
		logger.Error("payment gateway call failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
	}
	for _, o := range orders {
		o.GatewayToken = trx.Token
		o.GatewayRedirectURL = trx.RedirectURL
	}

	if err := s.persist(ctx, logger, userID, src, lines, orders); err != nil {
		// сессия в шлюзе уже создана, но заказов нет: нужна ручная сверка
		logger.Error("payment session orphaned: orders were not persisted",
			slog.String("gatewayToken", trx.Token),
			slog.Any("error", err),
		)
		if kind := classify(err); kind != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, kind, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if src.kind == sourceCart && s.CartCache != nil {
		if err := s.CartCache.Delete(ctx, userID); err != nil {
			logger.Warn("cart cache invalidation failed", slog.Any("error", err))
		}
	}

	logger.Info("checkout completed", slog.Int("orders", len(orders)))
	return &CheckoutResult{
		PaymentGroupID: paymentGroupID,
		Token:          trx.Token,
		RedirectURL:    trx.RedirectURL,
		GrossAmount:    gross,
		Orders:         orders,
	}, nil
}

// persist записывает заказы, события и чистит корзину в одной транзакции.
func (s *checkoutService) persist(ctx context.Context, logger *slog.Logger, userID uuid.UUID, src lineSource, lines []resolvedLine, orders []*models.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, order := range orders {
		if err := s.Orders.CreateOrderTx(ctx, tx, order); err != nil {
			rollback(logger, tx)
			return fmt.Errorf("failed to create order %s: %w", order.OrderCode, err)
		}
		if err := writeOrderEvent(ctx, s.Outbox, tx, order, models.EventOrderCreated, order.Status); err != nil {
			rollback(logger, tx)
			return err
		}
	}

	if src.kind == sourceCart {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.cartItemID)
		}
		deleted, err := s.Carts.DeleteItemsTx(ctx, tx, userID, ids)
		if err != nil {
			rollback(logger, tx)
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		// позиции удалили параллельным запросом, заказы по ним создавать нельзя
		if deleted != int64(len(ids)) {
			rollback(logger, tx)
			logger.Warn("cart items changed during checkout",
				slog.Int("expected", len(ids)),
				slog.Int64("deleted", deleted),
			)
			return fmt.Errorf("cart items changed during checkout: %w", ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeOrderEvent(ctx context.Context, outbox storage.OutboxStorage, tx *sql.Tx, order *models.Order, eventType string, status models.OrderStatus) error {
	p := models.OrderEventPayload{
		OrderID:     order.ID,
		OrderCode:   order.OrderCode,
		UserID:      order.UserID,
		OutletID:    order.OutletID,
		Status:      status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if order.PaymentGroupID != nil {
		p.PaymentGroupID = *order.PaymentGroupID
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	if err := outbox.InsertTx(ctx, tx, order.ID, eventType, payload); err != nil {
		return fmt.Errorf("failed to write %s event: %w", eventType, err)
	}
	return nil
}
