package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/lib/logger"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	const serverKey = "SB-Mid-server-test"
	n := &models.PaymentNotification{
		OrderID:     "grp-1",
		StatusCode:  "200",
		GrossAmount: "45000.00",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)

	assert.Len(t, n.SignatureKey, 128)
	assert.True(t, VerifySignature(n, serverKey))
	assert.False(t, VerifySignature(n, "other-key"))

	tampered := *n
	tampered.GrossAmount = "1.00"
	assert.False(t, VerifySignature(&tampered, serverKey))

	empty := *n
	empty.SignatureKey = ""
	assert.False(t, VerifySignature(&empty, serverKey))
	assert.False(t, VerifySignature(nil, serverKey))
}

func TestBuildSnapRequest(t *testing.T) {
	long := "Outlet order with a very long descriptive name that exceeds the limit"
	sr := buildSnapRequest(TransactionRequest{
		PaymentGroupID: "grp-1",
		GrossAmount:    45000,
		PaymentMethod:  "qris",
		CustomerName:   "Budi",
		CustomerEmail:  "budi@example.com",
		Items: []LineItem{
			{ID: "INV-A", Name: "INV-A", Amount: 25000},
			{ID: "INV-B", Name: long, Amount: 20000},
		},
	})

	assert.Equal(t, "grp-1", sr.TransactionDetails.OrderID)
	assert.Equal(t, int64(45000), sr.TransactionDetails.GrossAmt)
	require.NotNil(t, sr.CustomerDetail)
	assert.Equal(t, "Budi", sr.CustomerDetail.FName)
	assert.Equal(t, "budi@example.com", sr.CustomerDetail.Email)
	assert.Equal(t, []snap.SnapPaymentType{"qris"}, sr.EnabledPayments)

	require.NotNil(t, sr.Items)
	items := *sr.Items
	require.Len(t, items, 2)
	assert.Equal(t, int64(25000), items[0].Price)
	assert.Equal(t, int32(1), items[0].Qty)
	assert.Len(t, items[1].Name, maxItemNameLen)
}

func TestBuildSnapRequest_TruncatesByRunes(t *testing.T) {
	name := strings.Repeat("Кофе ☕ ", 20)
	sr := buildSnapRequest(TransactionRequest{
		PaymentGroupID: "grp-3",
		GrossAmount:    1000,
		Items:          []LineItem{{ID: "v1", Name: name, Amount: 1000}},
	})

	got := (*sr.Items)[0].Name
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxItemNameLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(name, got))
}

func TestBuildSnapRequest_NoMethod(t *testing.T) {
	sr := buildSnapRequest(TransactionRequest{PaymentGroupID: "grp-2", GrossAmount: 1000})
	assert.Nil(t, sr.EnabledPayments)
	assert.Nil(t, sr.Items)
}

type fakeGateway struct {
	calls int
	err   error
}

func (f *fakeGateway) CreateTransaction(_ context.Context, _ TransactionRequest) (*Transaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Transaction{Token: "tok", RedirectURL: "https://pay.example/tok"}, nil
}

func TestBreakerGateway_PassesThrough(t *testing.T) {
	next := &fakeGateway{}
	b := NewBreakerGateway(logger.Discard(), next, 2, time.Minute)

	tx, err := b.CreateTransaction(context.Background(), TransactionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "tok", tx.Token)
	assert.Equal(t, "closed", b.Status())
}

func TestBreakerGateway_OpensAfterFailures(t *testing.T) {
	next := &fakeGateway{err: errors.New("connection refused")}
	b := NewBreakerGateway(logger.Discard(), next, 2, time.Minute)
	ctx := context.Background()

	_, err := b.CreateTransaction(ctx, TransactionRequest{})
	require.Error(t, err)
	_, err = b.CreateTransaction(ctx, TransactionRequest{})
	require.Error(t, err)
	assert.Equal(t, "open", b.Status())

	// в открытом состоянии шлюз не вызывается
	_, err = b.CreateTransaction(ctx, TransactionRequest{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, 2, next.calls)
}
