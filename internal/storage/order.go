package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/linemk/outlet-shop/internal/domain/models"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ вместе с позициями, используя транзакцию.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	// GetOrdersByUserID возвращает заказы пользователя, новые первыми, с названием точки и числом позиций.
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	// GetOrderForUser возвращает заказ с позициями, только если он принадлежит пользователю.
	GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	// LockOrdersByReferenceTx блокирует все заказы группы оплаты (или один заказ по order_code).
	LockOrdersByReferenceTx(ctx context.Context, tx *sql.Tx, reference string) ([]*models.Order, error)
	// UpdateStatusTx меняет статус заказов, которые сейчас находятся в статусе from.
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderIDs []uuid.UUID, from, to models.OrderStatus) (int64, error)
	// GetStockConsumptionTx возвращает позиции заказов с товаром и множителем остатка.
	GetStockConsumptionTx(ctx context.Context, tx *sql.Tx, orderIDs []uuid.UUID) ([]models.StockConsumption, error)
}

// orderRepository – конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.order_code, o.payment_group_id, o.user_id, o.outlet_id, o.total_amount, o.net_amount,
		o.payment_method, o.gateway_token, o.gateway_redirect_url, o.status, o.created_at, o.updated_at`

func scanOrder(row rowScanner, order *models.Order, extra ...any) error {
	var groupID sql.NullString
	dest := []any{
		&order.ID, &order.OrderCode, &groupID, &order.UserID, &order.OutletID, &order.TotalAmount,
		&order.NetAmount, &order.PaymentMethod, &order.GatewayToken, &order.GatewayRedirectURL,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if groupID.Valid {
		order.PaymentGroupID = &groupID.String
	}
	return nil
}

// CreateOrderTx вставляет заказ и его позиции. created_at/updated_at ставит БД.
func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	query := `INSERT INTO orders (id, order_code, payment_group_id, user_id, outlet_id, total_amount, net_amount,
	              payment_method, gateway_token, gateway_redirect_url, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	          RETURNING created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		order.ID,
		order.OrderCode,
		order.PaymentGroupID,
		order.UserID,
		order.OutletID,
		order.TotalAmount,
		order.NetAmount,
		order.PaymentMethod,
		order.GatewayToken,
		order.GatewayRedirectURL,
		order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, variant_id, quantity, price_at_purchase, subtotal)
	              VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, item.OrderID, item.VariantID, item.Quantity, item.PriceAtPurchase, item.Subtotal,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `, ot.name,
		       (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
		FROM orders o
		JOIN outlets ot ON ot.id = o.outlet_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order := &models.Order{}
		if err := scanOrder(rows, order, &order.OutletName, &order.ItemCount); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `, ot.name
		FROM orders o
		JOIN outlets ot ON ot.id = o.outlet_id
		WHERE o.id = $1 AND o.user_id = $2`
	order := &models.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, userID), order, &order.OutletName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.variant_id, v.name, p.name, oi.quantity, oi.price_at_purchase, oi.subtotal
		FROM order_items oi
		JOIN product_variants v ON v.id = oi.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`
	rows, err := r.db.QueryContext(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.VariantName, &it.ProductName,
			&it.Quantity, &it.PriceAtPurchase, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	order.ItemCount = len(order.Items)
	return order, nil
}

// LockOrdersByReferenceTx – FOR UPDATE сериализует параллельные уведомления по одной группе
func (r *orderRepository) LockOrdersByReferenceTx(ctx context.Context, tx *sql.Tx, reference string) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.payment_group_id = $1 OR o.order_code = $1
		ORDER BY o.order_code
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to lock orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := scanOrder(rows, order); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderIDs []uuid.UUID, from, to models.OrderStatus) (int64, error) {
	query := `UPDATE orders SET status = $1, updated_at = NOW()
	          WHERE id = ANY($2::uuid[]) AND status = $3`
	res, err := tx.ExecContext(ctx, query, to, pq.Array(uuidStrings(orderIDs)), from)
	if err != nil {
		return 0, fmt.Errorf("failed to update order status: %w", err)
	}
	return res.RowsAffected()
}

func (r *orderRepository) GetStockConsumptionTx(ctx context.Context, tx *sql.Tx, orderIDs []uuid.UUID) ([]models.StockConsumption, error) {
	query := `
		SELECT v.product_id, oi.quantity, v.stock_multiplier
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN product_variants v ON v.id = oi.variant_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY o.order_code, oi.id`
	rows, err := tx.QueryContext(ctx, query, pq.Array(uuidStrings(orderIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var out []models.StockConsumption
	for rows.Next() {
		var c models.StockConsumption
		if err := rows.Scan(&c.ProductID, &c.Quantity, &c.StockMultiplier); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
