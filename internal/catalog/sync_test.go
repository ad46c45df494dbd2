package catalog

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
	"storformat-pricing/pkg/api"
)

type stubSource struct {
	materials []api.Material
	finishes  []api.Finish
	products  []api.Product
	err       error
}

func (s *stubSource) GetMaterials(context.Context, string) ([]api.Material, error) {
	return s.materials, s.err
}

func (s *stubSource) GetFinishes(context.Context, string) ([]api.Finish, error) {
	return s.finishes, nil
}

func (s *stubSource) GetProducts(context.Context, string) ([]api.Product, error) {
	return s.products, nil
}

type stubStore struct {
	materials map[string]pricing.Material
	finishes  map[string]pricing.Finish
	products  map[string]pricing.Product
}

func newStubStore() *stubStore {
	return &stubStore{
		materials: map[string]pricing.Material{},
		finishes:  map[string]pricing.Finish{},
		products:  map[string]pricing.Product{},
	}
}

func (s *stubStore) ReplaceMaterial(_ context.Context, _ string, m pricing.Material, _ bool) error {
	s.materials[m.ID] = m
	return nil
}

func (s *stubStore) ReplaceFinish(_ context.Context, _ string, f pricing.Finish) error {
	s.finishes[f.ID] = f
	return nil
}

func (s *stubStore) ReplaceProduct(_ context.Context, _ string, p pricing.Product) error {
	s.products[p.ID] = p
	return nil
}

func TestSync(t *testing.T) {
	toArea := 2.5
	source := &stubSource{
		materials: []api.Material{{
			ID:   "m1",
			Name: "Mesh banner",
			Tiers: []api.Tier{
				{FromArea: 0, ToArea: &toArea, PricePerArea: 120, IsAnchor: true, MarkupPct: 5},
			},
			InterpolationEnabled: true,
			MinPrice:             250,
			InStock:              true,
		}},
		finishes: []api.Finish{{ID: "f1", Name: "Hemming", PricingMode: "fixed", FixedPricePerUnit: 20}},
		products: []api.Product{{
			ID:          "p1",
			Name:        "Mounting set",
			PricingType: "fixed",
			FixedPrices: []api.FixedPrice{{Quantity: 10, Price: 90}},
		}},
	}
	store := newStubStore()

	written, err := NewSyncer(source, store, zap.NewNop()).Sync(context.Background(), "default")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if written != 3 {
		t.Errorf("written = %d, want 3", written)
	}

	m, ok := store.materials["m1"]
	if !ok {
		t.Fatal("material m1 not mirrored")
	}
	if len(m.Tiers) != 1 || m.Tiers[0].PricePerArea != 120 || !m.Tiers[0].IsAnchor {
		t.Errorf("unexpected material tiers %+v", m.Tiers)
	}
	if m.Tiers[0].ToArea == nil || *m.Tiers[0].ToArea != 2.5 {
		t.Errorf("tier upper bound lost: %+v", m.Tiers[0])
	}
	if m.MinPrice != 250 || !m.InterpolationEnabled {
		t.Errorf("material metadata lost: %+v", m)
	}

	f := store.finishes["f1"]
	if f.PricingMode != pricing.FinishPricingFixed || f.FixedPricePerUnit != 20 {
		t.Errorf("unexpected finish %+v", f)
	}

	p := store.products["p1"]
	if p.PricingType != pricing.ProductPricingFixed || len(p.FixedPrices) != 1 {
		t.Errorf("unexpected product %+v", p)
	}
}

func TestSync_SourceError(t *testing.T) {
	source := &stubSource{err: errors.New("hub unreachable")}
	store := newStubStore()

	if _, err := NewSyncer(source, store, zap.NewNop()).Sync(context.Background(), "default"); err == nil {
		t.Fatal("expected an error when the hub is unreachable")
	}
	if len(store.materials) != 0 {
		t.Error("no rows should be written on fetch failure")
	}
}
