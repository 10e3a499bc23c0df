package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/service"
)

type AddCartItemRequest struct {
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// GetCartHandler обрабатывает GET /api/carts
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetCartHandler"))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "cart retrieved", cart)
	}
}

// AddCartItemHandler обрабатывает POST /api/carts/items
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.AddCartItemHandler"))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		var req AddCartItemRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		item, err := cartService.AddItem(r.Context(), userID, uuid.MustParse(req.VariantID), req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, "item added to cart", item)
	}
}

// UpdateCartItemHandler обрабатывает PATCH /api/carts/items/{id}
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.UpdateCartItemHandler"))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, logger, chi.URLParam(r, "id"), "cart item id")
		if !ok {
			return
		}
		var req UpdateCartItemRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		item, err := cartService.UpdateItem(r.Context(), userID, itemID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "cart item updated", item)
	}
}

// DeleteCartItemHandler обрабатывает DELETE /api/carts/items/{id}
func DeleteCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.DeleteCartItemHandler"))

		userID, ok := userFromRequest(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, logger, chi.URLParam(r, "id"), "cart item id")
		if !ok {
			return
		}

		if err := cartService.RemoveItem(r.Context(), userID, itemID); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "cart item removed", nil)
	}
}
