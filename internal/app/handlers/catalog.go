package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/service"
)

// ListOutletsHandler обрабатывает GET /api/outlets
func ListOutletsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListOutletsHandler"))

		outlets, err := catalogService.ListOutlets(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "outlets retrieved", outlets)
	}
}

// GetOutletHandler обрабатывает GET /api/outlets/{id}
func GetOutletHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetOutletHandler"))

		outletID, ok := uuidParam(w, logger, chi.URLParam(r, "id"), "outlet id")
		if !ok {
			return
		}

		outlet, err := catalogService.GetOutlet(r.Context(), outletID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "outlet retrieved", outlet)
	}
}

// ListProductsHandler обрабатывает GET /api/products, ?outletId= сужает выборку до одной точки
func ListProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListProductsHandler"))

		outletID := uuid.Nil
		if raw := r.URL.Query().Get("outletId"); raw != "" {
			id, ok := uuidParam(w, logger, raw, "outlet id")
			if !ok {
				return
			}
			outletID = id
		}

		products, err := catalogService.ListProducts(r.Context(), outletID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "products retrieved", products)
	}
}

// GetProductHandler обрабатывает GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.GetProductHandler"))

		productID, ok := uuidParam(w, logger, chi.URLParam(r, "id"), "product id")
		if !ok {
			return
		}

		product, err := catalogService.GetProduct(r.Context(), productID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, "product retrieved", product)
	}
}
