package service_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/linemk/outlet-shop/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCodePattern = regexp.MustCompile(`^INV-[A-Z]+-\d{8}-[0-9A-F]{8}-\d{2}$`)

type checkoutFixture struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	users   *fakeUserRepo
	catalog *fakeCatalogRepo
	carts   *fakeCartRepo
	orders  *fakeOrderRepo
	outbox  *fakeOutboxRepo
	gateway *fakeGateway
	cache   *fakeCartCache
	metrics *metrics.Metrics
	user    *models.User
	outletX models.Outlet
	outletY models.Outlet
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &checkoutFixture{
		db:      db,
		mock:    mock,
		users:   newFakeUserRepo(),
		catalog: newFakeCatalogRepo(),
		carts:   &fakeCartRepo{},
		orders:  newFakeOrderRepo(),
		outbox:  &fakeOutboxRepo{},
		gateway: &fakeGateway{},
		cache:   newFakeCartCache(),
		metrics: metrics.New(prometheus.NewRegistry()),
		outletX: models.Outlet{ID: uuid.New(), Code: "jkt", Name: "Jakarta"},
		outletY: models.Outlet{ID: uuid.New(), Code: "BDG", Name: "Bandung"},
	}
	f.user, err = f.users.CreateUser(context.Background(), &models.User{Email: "budi@example.com", Name: "Budi"})
	require.NoError(t, err)
	return f
}

func (f *checkoutFixture) service() service.CheckoutService {
	return service.NewCheckoutService(testLogger(), service.CheckoutDeps{
		DB:        f.db,
		Users:     f.users,
		Catalog:   f.catalog,
		Carts:     f.carts,
		Orders:    f.orders,
		Outbox:    f.outbox,
		Gateway:   f.gateway,
		CartCache: f.cache,
		Metrics:   f.metrics,
	})
}

// позиции X: 10000×2 и 5000×1, позиция Y: 20000×1
func (f *checkoutFixture) seedScenarioXY() []uuid.UUID {
	productX, productY := uuid.New(), uuid.New()
	v1 := f.catalog.add(f.outletX, productX, 10000, 1)
	v2 := f.catalog.add(f.outletX, productX, 5000, 1)
	v3 := f.catalog.add(f.outletY, productY, 20000, 1)
	return []uuid.UUID{
		f.carts.addLine(v1, 2),
		f.carts.addLine(v3, 1),
		f.carts.addLine(v2, 1),
	}
}

func TestCheckoutCart_SplitsByOutlet(t *testing.T) {
	f := newCheckoutFixture(t)
	ids := f.seedScenarioXY()
	f.cache.carts[f.user.ID] = &models.Cart{}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.service().CheckoutCart(context.Background(), f.user.ID, ids, "")
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	require.Len(t, res.Orders, 2)
	x, y := res.Orders[0], res.Orders[1]
	assert.Equal(t, f.outletX.ID, x.OutletID)
	assert.Equal(t, f.outletY.ID, y.OutletID)
	assert.Equal(t, int64(25000), x.TotalAmount)
	assert.Equal(t, int64(25000), x.NetAmount)
	assert.Equal(t, int64(20000), y.TotalAmount)
	assert.Equal(t, int64(45000), res.GrossAmount)

	// один вызов шлюза на всю группу
	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, int64(45000), req.GrossAmount)
	assert.Equal(t, res.PaymentGroupID, req.PaymentGroupID)
	assert.Equal(t, "qris", req.PaymentMethod)
	assert.Equal(t, "Budi", req.CustomerName)
	assert.Equal(t, "budi@example.com", req.CustomerEmail)

	for _, o := range res.Orders {
		require.NotNil(t, o.PaymentGroupID)
		assert.Equal(t, res.PaymentGroupID, *o.PaymentGroupID)
		assert.Equal(t, res.Token, o.GatewayToken)
		assert.Equal(t, res.RedirectURL, o.GatewayRedirectURL)
		assert.Equal(t, models.OrderStatusPending, o.Status)
		assert.Equal(t, "qris", o.PaymentMethod)
		assert.Equal(t, models.SumSubtotals(o.Items), o.TotalAmount)
		for _, it := range o.Items {
			assert.Equal(t, it.PriceAtPurchase*int64(it.Quantity), it.Subtotal)
		}
		assert.Regexp(t, orderCodePattern, o.OrderCode)
	}
	assert.Contains(t, x.OrderCode, "INV-JKT-")
	assert.Contains(t, x.OrderCode, "-01")
	assert.Contains(t, y.OrderCode, "INV-BDG-")
	assert.Contains(t, y.OrderCode, "-02")

	assert.ElementsMatch(t, ids, f.carts.deleted)
	assert.Equal(t, []string{models.EventOrderCreated, models.EventOrderCreated}, f.outbox.events)
	assert.NotContains(t, f.cache.carts, f.user.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("cart", "success")))
}

func TestCheckoutCart_ExplicitPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	v := f.catalog.add(f.outletX, uuid.New(), 10000, 1)
	id := f.carts.addLine(v, 1)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.service().CheckoutCart(context.Background(), f.user.ID, []uuid.UUID{id}, "bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, "bank_transfer", res.Orders[0].PaymentMethod)
	assert.Equal(t, "bank_transfer", f.gateway.requests[0].PaymentMethod)
}

func TestCheckoutCart_NoOwnedItems(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedScenarioXY()

	// id, которых нет в корзине пользователя
	res, err := f.service().CheckoutCart(context.Background(), f.user.ID, []uuid.UUID{uuid.New()}, "")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Nil(t, res)
	assert.Empty(t, f.gateway.requests)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.carts.deleted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckoutCart_EmptySelection(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.service().CheckoutCart(context.Background(), f.user.ID, nil, "")
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Empty(t, f.gateway.requests)
}

func TestCheckoutCart_GatewayFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	ids := f.seedScenarioXY()
	f.gateway.err = errBoom

	_, err := f.service().CheckoutCart(context.Background(), f.user.ID, ids, "")
	assert.ErrorIs(t, err, service.ErrExternalService)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.carts.deleted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("cart", "failed")))
}

func TestCheckoutCart_ConcurrentCartChangeRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ids := f.seedScenarioXY()
	one := int64(1)
	f.carts.deleteCount = &one

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().CheckoutCart(context.Background(), f.user.ID, ids, "")
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckoutCart_OrderInsertFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ids := f.seedScenarioXY()
	f.orders.createErr = errBoom

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().CheckoutCart(context.Background(), f.user.ID, ids, "")
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.carts.deleted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckoutCart_UnknownUserUsesDefaults(t *testing.T) {
	f := newCheckoutFixture(t)
	v := f.catalog.add(f.outletX, uuid.New(), 10000, 1)
	stranger := uuid.New()
	id := f.carts.addLine(v, 1)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.service().CheckoutCart(context.Background(), stranger, []uuid.UUID{id}, "")
	require.NoError(t, err)
	assert.Equal(t, "Customer", f.gateway.requests[0].CustomerName)
	assert.Equal(t, "", f.gateway.requests[0].CustomerEmail)
}

func TestCheckoutDirect_MergesDuplicatesAndKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	productX := uuid.New()
	v1 := f.catalog.add(f.outletX, productX, 10000, 1)
	v2 := f.catalog.add(f.outletY, uuid.New(), 20000, 1)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.service().CheckoutDirect(context.Background(), f.user.ID, []service.DirectItem{
		{VariantID: v1.Variant.ID, Quantity: 1},
		{VariantID: v2.Variant.ID, Quantity: 1},
		{VariantID: v1.Variant.ID, Quantity: 2},
	}, "")
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	require.Len(t, res.Orders, 2)
	require.Len(t, res.Orders[0].Items, 1)
	assert.Equal(t, 3, res.Orders[0].Items[0].Quantity)
	assert.Equal(t, int64(30000), res.Orders[0].TotalAmount)
	assert.Equal(t, int64(50000), res.GrossAmount)
	assert.Empty(t, f.carts.deleted)
	assert.Equal(t, 0, f.cache.deletes)
}

func TestCheckoutDirect_Validation(t *testing.T) {
	f := newCheckoutFixture(t)
	v := f.catalog.add(f.outletX, uuid.New(), 10000, 1)
	svc := f.service()
	ctx := context.Background()

	_, err := svc.CheckoutDirect(ctx, f.user.ID, nil, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.CheckoutDirect(ctx, f.user.ID, []service.DirectItem{{VariantID: v.Variant.ID, Quantity: 0}}, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.CheckoutDirect(ctx, f.user.ID, []service.DirectItem{
		{VariantID: v.Variant.ID, Quantity: 1},
		{VariantID: uuid.New(), Quantity: 1},
	}, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Empty(t, f.gateway.requests)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
