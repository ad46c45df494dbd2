package pricing

import (
	"math"
	"reflect"
	"testing"
)

func anchorPair() []Tier {
	return []Tier{
		{FromArea: 0, ToArea: area(1), PricePerArea: 100, IsAnchor: true},
		{FromArea: 1, ToArea: nil, PricePerArea: 80, IsAnchor: true},
	}
}

func TestCalculate_SingleSquareMeter(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{Name: "Banner", Tiers: anchorPair(), InterpolationEnabled: true},
		Config:   QuoteConfig{RoundingStep: 1},
	}

	got := CalculateStorformatPrice(req)
	nearlyEqual(t, "areaM2", got.AreaM2, 1)
	nearlyEqual(t, "totalAreaM2", got.TotalAreaM2, 1)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 100)
}

func TestCalculate_QuantityMovesIntoNextTier(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 2,
		Material: Material{Name: "Banner", Tiers: anchorPair(), InterpolationEnabled: true},
		Config:   QuoteConfig{RoundingStep: 1},
	}

	// totalArea 2 m² resolves on the unbounded anchor at 80/m².
	got := CalculateStorformatPrice(req)
	nearlyEqual(t, "totalAreaM2", got.TotalAreaM2, 2)
	nearlyEqual(t, "materialPricePerArea", got.MaterialPricePerArea, 80)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 160)
}

func TestCalculate_GlobalMarkupAndRounding(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{Tiers: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 103}}},
		Config:   QuoteConfig{RoundingStep: 10, GlobalMarkupPct: 10},
	}

	// 103 * 1.10 = 113.3, rounded half-up to step 10 → 110.
	got := CalculateStorformatPrice(req)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 110)

	if rem := math.Mod(got.TotalPrice, req.Config.RoundingStep); rem != 0 {
		t.Errorf("total %v is not a multiple of the rounding step", got.TotalPrice)
	}
}

func TestCalculate_RoundsHalfUp(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{Tiers: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 105}}},
		Config:   QuoteConfig{RoundingStep: 10},
	}

	nearlyEqual(t, "half rounds up", CalculateStorformatPrice(req).TotalPrice, 110)
}

func TestCalculate_MinimumPriceFloor(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{
			Tiers:    []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 300}},
			MinPrice: 500,
		},
		Config: QuoteConfig{RoundingStep: 1},
	}

	// The floor overrides the rounded total and is not itself rounded.
	got := CalculateStorformatPrice(req)
	nearlyEqual(t, "floored total", got.TotalPrice, 500)

	req.Material.MinPrice = 502.5
	req.Config.RoundingStep = 10
	got = CalculateStorformatPrice(req)
	nearlyEqual(t, "floor not re-rounded", got.TotalPrice, 502.5)
}

func TestCalculate_MaterialFloorBeatsProductFloor(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  100,
		HeightMM: 100,
		Quantity: 1,
		Material: Material{
			Tiers:    []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 10}},
			MinPrice: 400,
		},
		Product: &Product{PricingType: ProductPricingM2, MinPrice: 900},
		Config:  QuoteConfig{RoundingStep: 1},
	}

	nearlyEqual(t, "material floor wins", CalculateStorformatPrice(req).TotalPrice, 400)

	req.Material.MinPrice = 0
	nearlyEqual(t, "product floor used when material has none", CalculateStorformatPrice(req).TotalPrice, 900)
}

func TestCalculate_SplitRecommendation(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  2500,
		HeightMM: 1800,
		Quantity: 1,
		Material: Material{
			Tiers:       []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 100}},
			MaxWidthMM:  1000,
			MaxHeightMM: 2000,
			AllowSplit:  true,
		},
		Config: QuoteConfig{RoundingStep: 1},
	}

	got := CalculateStorformatPrice(req)
	if got.Split == nil {
		t.Fatal("expected a split recommendation")
	}
	if got.Split.PiecesWide != 3 || got.Split.PiecesHigh != 1 || got.Split.TotalPieces != 3 {
		t.Errorf("unexpected split %+v", got.Split)
	}
	if !got.Split.IsSplit {
		t.Error("expected IsSplit")
	}
	if got.Split.TotalPieces != got.Split.PiecesWide*got.Split.PiecesHigh {
		t.Error("piece count mismatch")
	}

	// Advisory only: the price is still based on the full requested area.
	nearlyEqual(t, "totalAreaM2", got.TotalAreaM2, 4.5)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 450)
}

func TestCalculate_NoSplitWithoutPermission(t *testing.T) {
	base := QuoteRequest{
		WidthMM:  2500,
		HeightMM: 1800,
		Quantity: 1,
		Material: Material{
			Tiers:       []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 100}},
			MaxWidthMM:  1000,
			MaxHeightMM: 2000,
		},
		Config: QuoteConfig{RoundingStep: 1},
	}

	if got := CalculateStorformatPrice(base); got.Split != nil {
		t.Errorf("split despite AllowSplit=false: %+v", got.Split)
	}

	base.Material.AllowSplit = true
	base.Material.MaxWidthMM = 0
	if got := CalculateStorformatPrice(base); got.Split != nil {
		t.Errorf("split despite missing max dimensions: %+v", got.Split)
	}

	base.Material.MaxWidthMM = 3000
	if got := CalculateStorformatPrice(base); got.Split != nil {
		t.Errorf("split despite fitting dimensions: %+v", got.Split)
	}
}

func TestCalculate_FullBreakdown(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  2000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{Tiers: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 100}}},
		Finish: &Finish{
			PricingMode:       FinishPricingFixed,
			FixedPricePerUnit: 25,
		},
		Product: &Product{
			PricingType:  ProductPricingFixed,
			InitialPrice: 50,
			FixedPrices:  []FixedPrice{{Quantity: 1, Price: 10}},
		},
		Config: QuoteConfig{RoundingStep: 1, GlobalMarkupPct: 10},
	}

	got := CalculateStorformatPrice(req)
	nearlyEqual(t, "materialCost", got.MaterialCost, 200)
	nearlyEqual(t, "finishCost", got.FinishCost, 25)
	nearlyEqual(t, "productCost", got.ProductCost, 60)
	// (200+25+60) * 1.10 = 313.5 → 314 on step 1.
	nearlyEqual(t, "totalPrice", got.TotalPrice, 314)
}

func TestCalculate_DegradesGracefully(t *testing.T) {
	got := CalculateStorformatPrice(QuoteRequest{
		WidthMM:  -500,
		HeightMM: 1000,
		Quantity: -2,
		Material: Material{},
		Config:   QuoteConfig{RoundingStep: 1},
	})

	nearlyEqual(t, "areaM2", got.AreaM2, 0)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 0)

	// A zero rounding step must not divide by zero.
	got = CalculateStorformatPrice(QuoteRequest{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 1,
		Material: Material{Tiers: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 99.5}}},
	})
	nearlyEqual(t, "unrounded total", got.TotalPrice, 99.5)
}

func TestCalculate_Idempotent(t *testing.T) {
	req := QuoteRequest{
		WidthMM:  1337,
		HeightMM: 420,
		Quantity: 3,
		Material: Material{Tiers: anchorPair(), InterpolationEnabled: true, MinPrice: 50},
		Finish:   &Finish{PricingMode: FinishPricingFixed, FixedPricePerUnit: 12, MarkupPct: 5},
		Config:   QuoteConfig{RoundingStep: 5, GlobalMarkupPct: 12.5},
	}

	first := CalculateStorformatPrice(req)
	second := CalculateStorformatPrice(req)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestCalculateM2_MaterialPriceTable(t *testing.T) {
	req := QuoteRequestM2{
		WidthMM:  1000,
		HeightMM: 1000,
		Quantity: 2,
		Material: Material{Name: "Banner", InterpolationEnabled: true},
		MaterialPrices: []Tier{
			{FromArea: 0, ToArea: area(1), PricePerArea: 100, IsAnchor: true},
			{FromArea: 1, ToArea: nil, PricePerArea: 80, IsAnchor: true},
		},
		Config: QuoteConfig{RoundingStep: 1},
	}

	// Same semantics as the entity-tier variant.
	got := CalculateStorformatM2Price(req)
	nearlyEqual(t, "materialPricePerArea", got.MaterialPricePerArea, 80)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 160)
}

func TestCalculateM2_FinishPriceRow(t *testing.T) {
	base := QuoteRequestM2{
		WidthMM:        1000,
		HeightMM:       2000,
		Quantity:       1,
		Material:       Material{},
		MaterialPrices: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 100}},
		Finish:         &Finish{Name: "Lamination", MarkupPct: 10},
		Config:         QuoteConfig{RoundingStep: 1},
	}

	base.FinishPrice = &FinishPriceRow{PricingMode: FinishPricingPerArea, PricePerArea: 30}
	got := CalculateStorformatM2Price(base)
	// 30/m² with 10% finish markup over 2 m², plus 200 material.
	nearlyEqual(t, "finishPricePerArea", got.FinishPricePerArea, 33)
	nearlyEqual(t, "finishCost", got.FinishCost, 66)
	nearlyEqual(t, "totalPrice", got.TotalPrice, 266)

	base.FinishPrice = &FinishPriceRow{PricingMode: FinishPricingFixed, FixedPrice: 40}
	got = CalculateStorformatM2Price(base)
	nearlyEqual(t, "fixed finish cost", got.FinishCost, 44)
	nearlyEqual(t, "fixed finish total", got.TotalPrice, 244)
}

func TestCalculateM2_EntityCarriesMinPrice(t *testing.T) {
	got := CalculateStorformatM2Price(QuoteRequestM2{
		WidthMM:        100,
		HeightMM:       100,
		Quantity:       1,
		Material:       Material{MinPrice: 250},
		MaterialPrices: []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 10}},
		Config:         QuoteConfig{RoundingStep: 1},
	})

	nearlyEqual(t, "floored total", got.TotalPrice, 250)
}
