package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

// PackageAggregator sizes one box for a whole order: weights add up,
// dimensions take the largest value per axis. It is not a packing solver.
type PackageAggregator struct {
	catalog port.CatalogRepository
	logger  *zap.Logger
}

func NewPackageAggregator(catalog port.CatalogRepository, logger *zap.Logger) *PackageAggregator {
	return &PackageAggregator{catalog: catalog, logger: logger}
}

// Aggregate never fails. Items whose product cannot be resolved are skipped
// and the carrier floors cover part of the underestimate.
func (a *PackageAggregator) Aggregate(ctx context.Context, items []domain.PackageItem) domain.PackageDetails {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return a.AggregateResolved(items, resolveProducts(ctx, a.catalog, a.logger, ids))
}

// AggregateResolved sizes the package from products the caller already
// looked up. A missing or nil entry is skipped.
func (a *PackageAggregator) AggregateResolved(items []domain.PackageItem, products map[string]*domain.Product) domain.PackageDetails {
	var pkg domain.PackageDetails

	for _, item := range items {
		product := products[item.ProductID]
		if product == nil {
			a.logger.Warn("skipping unresolved product in package", zap.String("product_id", item.ProductID))
			continue
		}

		pkg.WeightKg += product.Weight.Kilograms() * float64(item.Quantity)
		pkg.LengthCm = max(pkg.LengthCm, product.Dimensions.Length)
		pkg.BreadthCm = max(pkg.BreadthCm, product.Dimensions.Breadth)
		pkg.HeightCm = max(pkg.HeightCm, product.Dimensions.Height)
	}

	return pkg.ApplyFloors()
}

// resolveProducts looks each distinct id up once. Not-found and failed
// lookups map to nil.
func resolveProducts(ctx context.Context, catalog port.CatalogRepository, logger *zap.Logger, ids []string) map[string]*domain.Product {
	products := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if _, seen := products[id]; seen {
			continue
		}
		product, err := catalog.GetProductByID(ctx, id)
		if err != nil {
			logger.Warn("product lookup failed", zap.String("product_id", id), zap.Error(err))
			product = nil
		}
		products[id] = product
	}
	return products
}
