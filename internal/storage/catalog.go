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

// CatalogStorage описывает чтение каталога и списание остатков.
type CatalogStorage interface {
	ListOutlets(ctx context.Context) ([]*models.Outlet, error)
	GetOutlet(ctx context.Context, id uuid.UUID) (*models.Outlet, error)
	// ListProducts возвращает товары с фасовками; uuid.Nil в outletID значит все точки.
	ListProducts(ctx context.Context, outletID uuid.UUID) ([]*models.ProductWithVariants, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductWithVariants, error)
	// GetVariantsByIDs возвращает варианты вместе с товаром и точкой. Отсутствующие id просто не попадают в результат.
	GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.VariantWithOutlet, error)
	// DecrementStockTx уменьшает остаток товара в базовых единицах, используя транзакцию.
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID, units int) error
}

// catalogRepository – конкретная реализация интерфейса CatalogStorage.
type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт новый репозиторий каталога.
func NewCatalogRepository(db *sql.DB) CatalogStorage {
	return &catalogRepository{db: db}
}

const variantColumns = `v.id, v.product_id, v.name, v.price, v.stock_multiplier, p.name, o.id, o.code, o.name`

func (r *catalogRepository) GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.VariantWithOutlet, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		JOIN outlets o ON o.id = p.outlet_id
		WHERE v.id = ANY($1::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []*models.VariantWithOutlet
	for rows.Next() {
		v := &models.VariantWithOutlet{}
		if err := scanVariant(rows, v); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *catalogRepository) ListOutlets(ctx context.Context) ([]*models.Outlet, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, code, name FROM outlets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query outlets: %w", err)
	}
	defer rows.Close()

	outlets := []*models.Outlet{}
	for rows.Next() {
		o := &models.Outlet{}
		if err := rows.Scan(&o.ID, &o.Code, &o.Name); err != nil {
			return nil, fmt.Errorf("failed to scan outlet: %w", err)
		}
		outlets = append(outlets, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outlets, nil
}

func (r *catalogRepository) GetOutlet(ctx context.Context, id uuid.UUID) (*models.Outlet, error) {
	o := &models.Outlet{}
	err := r.db.QueryRowContext(ctx, "SELECT id, code, name FROM outlets WHERE id = $1", id).
		Scan(&o.ID, &o.Code, &o.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outlet: %w", err)
	}
	return o, nil
}

const productQuery = `
		SELECT p.id, p.outlet_id, p.name, p.stock, o.name
		FROM products p
		JOIN outlets o ON o.id = p.outlet_id`

func (r *catalogRepository) ListProducts(ctx context.Context, outletID uuid.UUID) ([]*models.ProductWithVariants, error) {
	query := productQuery
	var args []any
	if outletID != uuid.Nil {
		query += " WHERE p.outlet_id = $1"
		args = append(args, outletID)
	}
	query += " ORDER BY o.name, p.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*models.ProductWithVariants{}
	for rows.Next() {
		p := &models.ProductWithVariants{}
		if err := scanProduct(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductWithVariants, error) {
	p := &models.ProductWithVariants{}
	err := scanProduct(r.db.QueryRowContext(ctx, productQuery+" WHERE p.id = $1", id), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := r.attachVariants(ctx, []*models.ProductWithVariants{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// attachVariants подгружает фасовки одним запросом на все товары, дешёвые первыми
func (r *catalogRepository) attachVariants(ctx context.Context, products []*models.ProductWithVariants) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.ProductWithVariants, len(products))
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		p.Variants = []models.ProductVariant{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `
		SELECT id, product_id, name, price, stock_multiplier
		FROM product_variants
		WHERE product_id = ANY($1::uuid[])
		ORDER BY price, name`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.StockMultiplier); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func scanProduct(row rowScanner, p *models.ProductWithVariants) error {
	return row.Scan(&p.ID, &p.OutletID, &p.Name, &p.Stock, &p.OutletName)
}

// DecrementStockTx – единственное место, где checkout-конвейер меняет остатки
func (r *catalogRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID, units int) error {
	res, err := tx.ExecContext(ctx, "UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2", units, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner, v *models.VariantWithOutlet) error {
	err := row.Scan(
		&v.Variant.ID,
		&v.Variant.ProductID,
		&v.Variant.Name,
		&v.Variant.Price,
		&v.Variant.StockMultiplier,
		&v.ProductName,
		&v.Outlet.ID,
		&v.Outlet.Code,
		&v.Outlet.Name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrVariantNotFound
	}
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
