package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ограничение Midtrans на длину названия позиции
const maxItemNameLen = 50

// MidtransGateway создаёт Snap-транзакции.
type MidtransGateway struct {
	client snap.Client
}

// NewMidtransGateway настраивает Snap-клиент. environment: "production" или что угодно ещё для sandbox.
func NewMidtransGateway(serverKey, environment string, timeout time.Duration) *MidtransGateway {
	env := midtrans.Sandbox
	if strings.EqualFold(environment, "production") {
		env = midtrans.Production
	}
	if timeout > 0 {
		midtrans.DefaultGoHttpClient = &http.Client{Timeout: timeout}
	}

	g := &MidtransGateway{}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	const op = "payment.MidtransGateway.CreateTransaction"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, mErr := g.client.CreateTransaction(buildSnapRequest(req))
	if mErr != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrGatewayUnavailable, mErr.Error())
	}
	if resp == nil || resp.Token == "" {
		return nil, fmt.Errorf("%s: %w: empty token", op, ErrGatewayUnavailable)
	}

	return &Transaction{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func buildSnapRequest(req TransactionRequest) *snap.Request {
	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  truncateName(it.Name),
			Price: it.Amount,
			Qty:   1,
		})
	}

	sr := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.PaymentGroupID,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
	}
	if len(items) > 0 {
		sr.Items = &items
	}
	if req.PaymentMethod != "" {
		sr.EnabledPayments = []snap.SnapPaymentType{snap.SnapPaymentType(req.PaymentMethod)}
	}
	return sr
}

// truncateName режет по рунам, чтобы не разорвать многобайтовый символ.
func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxItemNameLen {
		return name
	}
	return string([]rune(name)[:maxItemNameLen])
}
