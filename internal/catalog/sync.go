package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
	"storformat-pricing/pkg/api"
)

// Source is the pricing-hub side of a sync.
type Source interface {
	GetMaterials(ctx context.Context, tenantID string) ([]api.Material, error)
	GetFinishes(ctx context.Context, tenantID string) ([]api.Finish, error)
	GetProducts(ctx context.Context, tenantID string) ([]api.Product, error)
}

// Store is the local mirror the engine prices against.
type Store interface {
	ReplaceMaterial(ctx context.Context, tenantID string, m pricing.Material, inStock bool) error
	ReplaceFinish(ctx context.Context, tenantID string, f pricing.Finish) error
	ReplaceProduct(ctx context.Context, tenantID string, p pricing.Product) error
}

type Syncer struct {
	source Source
	store  Store
	logger *zap.Logger
}

func NewSyncer(source Source, store Store, logger *zap.Logger) *Syncer {
	return &Syncer{source: source, store: store, logger: logger}
}

// Sync mirrors one tenant's catalog from the pricing hub into local storage.
// Returns the number of rows written.
func (s *Syncer) Sync(ctx context.Context, tenantID string) (int, error) {
	const operation = "catalog.Sync"

	materials, err := s.source.GetMaterials(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: fetch materials: %w", operation, err)
	}
	finishes, err := s.source.GetFinishes(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: fetch finishes: %w", operation, err)
	}
	products, err := s.source.GetProducts(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: fetch products: %w", operation, err)
	}

	var written int
	for _, m := range materials {
		if err := s.store.ReplaceMaterial(ctx, tenantID, materialFromAPI(m), m.InStock); err != nil {
			return written, fmt.Errorf("%s: material %s: %w", operation, m.ID, err)
		}
		written++
	}
	for _, f := range finishes {
		if err := s.store.ReplaceFinish(ctx, tenantID, finishFromAPI(f)); err != nil {
			return written, fmt.Errorf("%s: finish %s: %w", operation, f.ID, err)
		}
		written++
	}
	for _, p := range products {
		if err := s.store.ReplaceProduct(ctx, tenantID, productFromAPI(p)); err != nil {
			return written, fmt.Errorf("%s: product %s: %w", operation, p.ID, err)
		}
		written++
	}

	s.logger.Info("Catalog sync completed",
		zap.String("tenant_id", tenantID),
		zap.Int("materials", len(materials)),
		zap.Int("finishes", len(finishes)),
		zap.Int("products", len(products)))

	return written, nil
}

func tiersFromAPI(rows []api.Tier) []pricing.Tier {
	tiers := make([]pricing.Tier, 0, len(rows))
	for _, r := range rows {
		tiers = append(tiers, pricing.Tier{
			FromArea:     r.FromArea,
			ToArea:       r.ToArea,
			PricePerArea: r.PricePerArea,
			IsAnchor:     r.IsAnchor,
			MarkupPct:    r.MarkupPct,
		})
	}
	return tiers
}

func materialFromAPI(m api.Material) pricing.Material {
	return pricing.Material{
		ID:                   m.ID,
		Name:                 m.Name,
		Tiers:                tiersFromAPI(m.Tiers),
		InterpolationEnabled: m.InterpolationEnabled,
		MarkupPct:            m.MarkupPct,
		MinPrice:             m.MinPrice,
		MaxWidthMM:           m.MaxWidthMM,
		MaxHeightMM:          m.MaxHeightMM,
		AllowSplit:           m.AllowSplit,
	}
}

func finishFromAPI(f api.Finish) pricing.Finish {
	return pricing.Finish{
		ID:                   f.ID,
		Name:                 f.Name,
		PricingMode:          pricing.FinishPricingMode(f.PricingMode),
		FixedPricePerUnit:    f.FixedPricePerUnit,
		Tiers:                tiersFromAPI(f.Tiers),
		InterpolationEnabled: f.InterpolationEnabled,
		MarkupPct:            f.MarkupPct,
	}
}

func productFromAPI(p api.Product) pricing.Product {
	fixedPrices := make([]pricing.FixedPrice, 0, len(p.FixedPrices))
	for _, fp := range p.FixedPrices {
		fixedPrices = append(fixedPrices, pricing.FixedPrice{Quantity: fp.Quantity, Price: fp.Price})
	}
	return pricing.Product{
		ID:                   p.ID,
		Name:                 p.Name,
		PricingType:          pricing.ProductPricingType(p.PricingType),
		InitialPrice:         p.InitialPrice,
		PercentageMarkup:     p.PercentageMarkup,
		FixedPrices:          fixedPrices,
		Tiers:                tiersFromAPI(p.Tiers),
		InterpolationEnabled: p.InterpolationEnabled,
		MarkupPct:            p.MarkupPct,
		MinPrice:             p.MinPrice,
	}
}
