package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/storage"
)

// CatalogService – публичное чтение каталога: точки, товары и их фасовки.
type CatalogService interface {
	ListOutlets(ctx context.Context) ([]*models.Outlet, error)
	GetOutlet(ctx context.Context, id uuid.UUID) (*models.OutletDetail, error)
	ListProducts(ctx context.Context, outletID uuid.UUID) ([]*models.ProductWithVariants, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductWithVariants, error)
}

type catalogService struct {
	log         *slog.Logger
	catalogRepo storage.CatalogStorage
}

func NewCatalogService(log *slog.Logger, catalogRepo storage.CatalogStorage) CatalogService {
	return &catalogService{
		log:         log,
		catalogRepo: catalogRepo,
	}
}

func (s *catalogService) ListOutlets(ctx context.Context) ([]*models.Outlet, error) {
	const op = "service.CatalogService.ListOutlets"

	outlets, err := s.catalogRepo.ListOutlets(ctx)
	if err != nil {
		s.log.Error("failed to list outlets", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return outlets, nil
}

// GetOutlet возвращает точку вместе с её товарами
func (s *catalogService) GetOutlet(ctx context.Context, id uuid.UUID) (*models.OutletDetail, error) {
	const op = "service.CatalogService.GetOutlet"
	logger := s.log.With(slog.String("op", op), slog.String("outletID", id.String()))

	outlet, err := s.catalogRepo.GetOutlet(ctx, id)
	if err != nil {
		return nil, s.wrap(logger, op, err)
	}
	products, err := s.catalogRepo.ListProducts(ctx, id)
	if err != nil {
		return nil, s.wrap(logger, op, err)
	}
	return &models.OutletDetail{Outlet: *outlet, Products: products}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, outletID uuid.UUID) ([]*models.ProductWithVariants, error) {
	const op = "service.CatalogService.ListProducts"

	products, err := s.catalogRepo.ListProducts(ctx, outletID)
	if err != nil {
		return nil, s.wrap(s.log.With(slog.String("op", op)), op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductWithVariants, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.catalogRepo.GetProduct(ctx, id)
	if err != nil {
		return nil, s.wrap(s.log.With(slog.String("op", op), slog.String("productID", id.String())), op, err)
	}
	return product, nil
}

func (s *catalogService) wrap(logger *slog.Logger, op string, err error) error {
	if kind := classify(err); kind != nil {
		logger.Info("catalog entry not found", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, kind, err)
	}
	logger.Error("catalog query failed", slog.Any("error", err))
	return fmt.Errorf("%s: %w", op, err)
}
