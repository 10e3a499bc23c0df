package service_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/cache"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/payment"
	"github.com/linemk/outlet-shop/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type fakeUserRepo struct {
	users map[string]*models.User // ключ – email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

type fakeCatalogRepo struct {
	variants   map[uuid.UUID]*models.VariantWithOutlet
	stock      map[uuid.UUID]int
	decrements int

	outlets  []*models.Outlet
	products []*models.ProductWithVariants
	readErr  error
}

var _ storage.CatalogStorage = (*fakeCatalogRepo)(nil)

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		variants: make(map[uuid.UUID]*models.VariantWithOutlet),
		stock:    make(map[uuid.UUID]int),
	}
}

func (f *fakeCatalogRepo) add(outlet models.Outlet, productID uuid.UUID, price int64, multiplier int) *models.VariantWithOutlet {
	v := &models.VariantWithOutlet{
		Variant: models.ProductVariant{
			ID:              uuid.New(),
			ProductID:       productID,
			Name:            "variant",
			Price:           price,
			StockMultiplier: multiplier,
		},
		ProductName: "product",
		Outlet:      outlet,
	}
	f.variants[v.Variant.ID] = v
	return v
}

func (f *fakeCatalogRepo) GetVariantsByIDs(_ context.Context, ids []uuid.UUID) ([]*models.VariantWithOutlet, error) {
	var out []*models.VariantWithOutlet
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) ListOutlets(context.Context) ([]*models.Outlet, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.outlets, nil
}

func (f *fakeCatalogRepo) GetOutlet(_ context.Context, id uuid.UUID) (*models.Outlet, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, o := range f.outlets {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, storage.ErrOutletNotFound
}

func (f *fakeCatalogRepo) ListProducts(_ context.Context, outletID uuid.UUID) ([]*models.ProductWithVariants, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := []*models.ProductWithVariants{}
	for _, p := range f.products {
		if outletID == uuid.Nil || p.OutletID == outletID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetProduct(_ context.Context, id uuid.UUID) (*models.ProductWithVariants, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, storage.ErrProductNotFound
}

func (f *fakeCatalogRepo) DecrementStockTx(_ context.Context, _ *sql.Tx, productID uuid.UUID, units int) error {
	f.decrements++
	f.stock[productID] -= units
	return nil
}

type fakeCartRepo struct {
	lines       []*models.CartCheckoutLine
	cart        *models.Cart
	deleted     []uuid.UUID
	deleteCount *int64 // если задано, DeleteItemsTx вернёт это значение
	itemErr     error
	added       int
	onLoad      func() // вызывается внутри GetCartByUserID, уже после чтения снимка
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func (f *fakeCartRepo) GetOrCreateCart(context.Context, uuid.UUID) (uuid.UUID, error) {
	if f.cart == nil {
		f.cart = &models.Cart{ID: uuid.New()}
	}
	return f.cart.ID, nil
}

func (f *fakeCartRepo) UpsertItem(_ context.Context, cartID, variantID uuid.UUID, quantity int) (*models.CartItem, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	f.added++
	item := models.CartItem{ID: uuid.New(), CartID: cartID, VariantID: variantID, Quantity: quantity}
	if f.cart != nil {
		// новая копия, чтобы уже прочитанные снимки не менялись
		next := *f.cart
		next.Items = append(append([]models.CartItem{}, f.cart.Items...), item)
		f.cart = &next
	}
	return &item, nil
}

func (f *fakeCartRepo) GetCartByUserID(ctx context.Context, _ uuid.UUID) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := f.cart
	if f.onLoad != nil {
		f.onLoad()
	}
	if snapshot == nil {
		return nil, storage.ErrCartNotFound
	}
	return snapshot, nil
}

func (f *fakeCartRepo) UpdateItemQuantity(_ context.Context, _, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return &models.CartItem{ID: itemID, Quantity: quantity}, nil
}

func (f *fakeCartRepo) DeleteItem(context.Context, uuid.UUID, uuid.UUID) error {
	return f.itemErr
}

func (f *fakeCartRepo) GetOwnedLinesForCheckout(_ context.Context, _ uuid.UUID, itemIDs []uuid.UUID) ([]*models.CartCheckoutLine, error) {
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []*models.CartCheckoutLine
	for _, l := range f.lines {
		if wanted[l.CartItemID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) DeleteItemsTx(_ context.Context, _ *sql.Tx, _ uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	f.deleted = append(f.deleted, itemIDs...)
	if f.deleteCount != nil {
		return *f.deleteCount, nil
	}
	return int64(len(itemIDs)), nil
}

func (f *fakeCartRepo) addLine(v *models.VariantWithOutlet, quantity int) uuid.UUID {
	id := uuid.New()
	f.lines = append(f.lines, &models.CartCheckoutLine{
		CartItemID:        id,
		Quantity:          quantity,
		VariantWithOutlet: *v,
	})
	return id
}

type fakeOrderRepo struct {
	mu          sync.Mutex
	orders      []*models.Order
	consumption map[uuid.UUID][]models.StockConsumption // ключ: orderID
	createErr   error
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{consumption: make(map[uuid.UUID][]models.StockConsumption)}
}

func (f *fakeOrderRepo) CreateOrderTx(_ context.Context, _ *sql.Tx, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(_ context.Context, userID uuid.UUID) ([]*models.Order, error) {
	out := []*models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetOrderForUser(_ context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) LockOrdersByReferenceTx(_ context.Context, _ *sql.Tx, reference string) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if (o.PaymentGroupID != nil && *o.PaymentGroupID == reference) || o.OrderCode == reference {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatusTx(_ context.Context, _ *sql.Tx, orderIDs []uuid.UUID, from, to models.OrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range orderIDs {
		for _, o := range f.orders {
			if o.ID == id && o.Status == from {
				o.Status = to
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeOrderRepo) GetStockConsumptionTx(_ context.Context, _ *sql.Tx, orderIDs []uuid.UUID) ([]models.StockConsumption, error) {
	var out []models.StockConsumption
	for _, id := range orderIDs {
		out = append(out, f.consumption[id]...)
	}
	return out, nil
}

func (f *fakeOrderRepo) statusOf(id uuid.UUID) models.OrderStatus {
	for _, o := range f.orders {
		if o.ID == id {
			return o.Status
		}
	}
	return ""
}

type fakeOutboxRepo struct {
	events []string
}

var _ storage.OutboxStorage = (*fakeOutboxRepo)(nil)

func (f *fakeOutboxRepo) InsertTx(_ context.Context, _ *sql.Tx, _ uuid.UUID, eventType string, _ []byte) error {
	f.events = append(f.events, eventType)
	return nil
}

func (f *fakeOutboxRepo) FetchPending(context.Context, int) ([]*models.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkSent(context.Context, int64) error {
	return nil
}

type fakeGateway struct {
	requests []payment.TransactionRequest
	err      error
}

var _ payment.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) CreateTransaction(_ context.Context, req payment.TransactionRequest) (*payment.Transaction, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Transaction{
		Token:       "snap-token-" + req.PaymentGroupID[:8],
		RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/" + req.PaymentGroupID,
	}, nil
}

type fakeCartCache struct {
	carts    map[uuid.UUID]*models.Cart
	versions map[uuid.UUID]int64
	deletes  int
	stale    int
	getErr   error
}

var _ cache.CartCache = (*fakeCartCache)(nil)

func newFakeCartCache() *fakeCartCache {
	return &fakeCartCache{
		carts:    make(map[uuid.UUID]*models.Cart),
		versions: make(map[uuid.UUID]int64),
	}
}

func (f *fakeCartCache) Get(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (f *fakeCartCache) Version(_ context.Context, userID uuid.UUID) (int64, error) {
	return f.versions[userID], nil
}

func (f *fakeCartCache) Set(_ context.Context, userID uuid.UUID, cart *models.Cart, version int64) error {
	if f.versions[userID] != version {
		f.stale++
		return cache.ErrStaleCart
	}
	f.carts[userID] = cart
	return nil
}

func (f *fakeCartCache) Delete(_ context.Context, userID uuid.UUID) error {
	f.deletes++
	f.versions[userID]++
	delete(f.carts, userID)
	return nil
}

var errBoom = errors.New("boom")
