package pricing

import "testing"

func TestPriceMaterial(t *testing.T) {
	m := Material{
		Name: "Frontlit PVC 510g",
		Tiers: []Tier{
			{FromArea: 0, ToArea: area(5), PricePerArea: 120},
			{FromArea: 5, ToArea: nil, PricePerArea: 90},
		},
	}

	got := PriceMaterial(m, 2)
	nearlyEqual(t, "unit price", got.UnitPrice, 120)
	nearlyEqual(t, "cost", got.Cost, 240)
}

func TestPriceFinish_Nil(t *testing.T) {
	got := PriceFinish(nil, 10, 4)
	nearlyEqual(t, "unit price", got.UnitPrice, 0)
	nearlyEqual(t, "cost", got.Cost, 0)
}

func TestPriceFinish_FixedPerUnit(t *testing.T) {
	f := &Finish{
		Name:              "Eyelets",
		PricingMode:       FinishPricingFixed,
		FixedPricePerUnit: 15,
		MarkupPct:         10,
	}

	got := PriceFinish(f, 4, 99)
	// Fixed finishes are not area-denominated.
	nearlyEqual(t, "unit price", got.UnitPrice, 0)
	nearlyEqual(t, "cost", got.Cost, 66)
}

func TestPriceFinish_PerArea(t *testing.T) {
	f := &Finish{
		Name:        "Matte lamination",
		PricingMode: FinishPricingPerArea,
		Tiers:       []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 40}},
	}

	got := PriceFinish(f, 1, 3)
	nearlyEqual(t, "unit price", got.UnitPrice, 40)
	nearlyEqual(t, "cost", got.Cost, 120)
}

func TestPriceProduct_Fixed(t *testing.T) {
	p := &Product{
		Name:         "Roll-up stand",
		PricingType:  ProductPricingFixed,
		InitialPrice: 50,
		FixedPrices:  []FixedPrice{{Quantity: 10, Price: 200}},
		MarkupPct:    20,
	}

	got := PriceProduct(p, 10, 7)
	nearlyEqual(t, "cost", got.Cost, 300) // (50+200) * 1.20

	// Quantity without an override row contributes only the initial price.
	got = PriceProduct(p, 3, 7)
	nearlyEqual(t, "cost without override", got.Cost, 60)
}

func TestPriceProduct_PerItemAndPercentageShareLookup(t *testing.T) {
	fixedPrices := []FixedPrice{{Quantity: 5, Price: 100}, {Quantity: 10, Price: 180}}

	perItem := &Product{PricingType: ProductPricingPerItem, FixedPrices: fixedPrices}
	percentage := &Product{PricingType: ProductPricingPercentage, FixedPrices: fixedPrices}

	for _, qty := range []int{5, 10, 7} {
		a := PriceProduct(perItem, qty, 1)
		b := PriceProduct(percentage, qty, 1)
		nearlyEqual(t, "per_item equals percentage", a.Cost, b.Cost)
	}
	nearlyEqual(t, "per_item lookup", PriceProduct(perItem, 10, 1).Cost, 180)
	nearlyEqual(t, "unlisted quantity", PriceProduct(perItem, 7, 1).Cost, 0)
}

func TestPriceProduct_M2AndUnrecognizedType(t *testing.T) {
	tiers := []Tier{{FromArea: 0, ToArea: nil, PricePerArea: 25}}

	m2 := &Product{PricingType: ProductPricingM2, Tiers: tiers}
	got := PriceProduct(m2, 1, 4)
	nearlyEqual(t, "m2 unit price", got.UnitPrice, 25)
	nearlyEqual(t, "m2 cost", got.Cost, 100)

	// Unrecognized types fall back to the area path.
	odd := &Product{PricingType: "subscription", Tiers: tiers}
	nearlyEqual(t, "unrecognized type cost", PriceProduct(odd, 1, 4).Cost, 100)
}

func TestPriceProduct_Nil(t *testing.T) {
	got := PriceProduct(nil, 10, 4)
	nearlyEqual(t, "cost", got.Cost, 0)
}
