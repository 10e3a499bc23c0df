package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/service"
)

// CheckoutRequest – оформление выбранных позиций корзины
type CheckoutRequest struct {
	CartItemIDs   []string `json:"cartItemIds" validate:"required,min=1,dive,uuid"`
	PaymentMethod string   `json:"paymentMethod" validate:"omitempty,max=50"`
}

type DirectItemRequest struct {
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// DirectCheckoutRequest – покупка без корзины
type DirectCheckoutRequest struct {
	Items         []DirectItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string              `json:"paymentMethod" validate:"omitempty,max=50"`
}

// CheckoutHandler обрабатывает POST /api/carts/checkout
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req CheckoutRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		ids := make([]uuid.UUID, 0, len(req.CartItemIDs))
		for _, raw := range req.CartItemIDs {
			ids = append(ids, uuid.MustParse(raw))
		}

		res, err := checkoutService.CheckoutCart(r.Context(), userID, ids, req.PaymentMethod)
		if err != nil {
			writeServiceError(w, logger.With(slog.String("userID", userID.String())), err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, "checkout created", res)
	}
}

// DirectCheckoutHandler обрабатывает POST /api/carts/checkout/direct
func DirectCheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DirectCheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req DirectCheckoutRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		items := make([]service.DirectItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, service.DirectItem{
				VariantID: uuid.MustParse(it.VariantID),
				Quantity:  it.Quantity,
			})
		}

		res, err := checkoutService.CheckoutDirect(r.Context(), userID, items, req.PaymentMethod)
		if err != nil {
			writeServiceError(w, logger.With(slog.String("userID", userID.String())), err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, "checkout created", res)
	}
}
