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

// CartStorage описывает методы для работы с корзиной и её позициями.
type CartStorage interface {
	// GetOrCreateCart возвращает id корзины пользователя, создавая её при первом обращении.
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	// UpsertItem добавляет позицию или увеличивает количество, если вариант уже в корзине.
	UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) (*models.CartItem, error)
	// GetCartByUserID возвращает корзину с позициями в порядке добавления.
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
	// GetOwnedLinesForCheckout загружает выбранные позиции только из корзины этого пользователя.
	GetOwnedLinesForCheckout(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]*models.CartCheckoutLine, error)
	// DeleteItemsTx удаляет позиции после checkout'а и возвращает число удалённых строк.
	DeleteItemsTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт новый репозиторий корзины.
func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	// DO UPDATE нужен, чтобы RETURNING вернул id уже существующей корзины
	query := `INSERT INTO carts (id, user_id) VALUES ($1, $2)
	          ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	          RETURNING id`
	var cartID uuid.UUID
	if err := r.db.QueryRowContext(ctx, query, uuid.New(), userID).Scan(&cartID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert cart: %w", err)
	}
	return cartID, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) (*models.CartItem, error) {
	query := `INSERT INTO cart_items (id, cart_id, variant_id, quantity) VALUES ($1, $2, $3, $4)
	          ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	          RETURNING id, cart_id, variant_id, quantity, created_at`
	item := &models.CartItem{}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), cartID, variantID, quantity).
		Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID, Items: []models.CartItem{}}
	err := r.db.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = $1", userID).Scan(&cart.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	query := `
		SELECT ci.id, ci.cart_id, ci.variant_id, ci.quantity, ci.created_at, v.name, p.name, o.name, v.price
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		JOIN outlets o ON o.id = p.outlet_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC`
	rows, err := r.db.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.VariantID, &it.Quantity, &it.CreatedAt,
			&it.VariantName, &it.ProductName, &it.OutletName, &it.Price); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	// принадлежность проверяется через корзину пользователя
	query := `UPDATE cart_items ci SET quantity = $1
	          FROM carts c
	          WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $3
	          RETURNING ci.id, ci.cart_id, ci.variant_id, ci.quantity, ci.created_at`
	item := &models.CartItem{}
	err := r.db.QueryRowContext(ctx, query, quantity, itemID, userID).
		Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items ci USING carts c
	          WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2`
	res, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) GetOwnedLinesForCheckout(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]*models.CartCheckoutLine, error) {
	query := `
		SELECT ci.id, ci.quantity, ` + variantColumns + `
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		JOIN outlets o ON o.id = p.outlet_id
		WHERE c.user_id = $1 AND ci.id = ANY($2::uuid[])
		ORDER BY ci.created_at ASC, ci.id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(uuidStrings(itemIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*models.CartCheckoutLine
	for rows.Next() {
		l := &models.CartCheckoutLine{}
		err := rows.Scan(
			&l.CartItemID,
			&l.Quantity,
			&l.Variant.ID,
			&l.Variant.ProductID,
			&l.Variant.Name,
			&l.Variant.Price,
			&l.Variant.StockMultiplier,
			&l.ProductName,
			&l.Outlet.ID,
			&l.Outlet.Code,
			&l.Outlet.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) DeleteItemsTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	query := `DELETE FROM cart_items ci USING carts c
	          WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.id = ANY($2::uuid[])`
	res, err := tx.ExecContext(ctx, query, userID, pq.Array(uuidStrings(itemIDs)))
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart items: %w", err)
	}
	return res.RowsAffected()
}
