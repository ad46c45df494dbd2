package pricing

// LinePrice is one priced line item. UnitPrice is per m² and reported as 0
// for lines that are not area-denominated.
type LinePrice struct {
	UnitPrice float64
	Cost      float64
}

// PriceMaterial prices the substrate, always per area.
func PriceMaterial(m Material, totalArea float64) LinePrice {
	unit := ResolveUnitPrice(totalArea, m.Tiers, m.InterpolationEnabled, m.MarkupPct)
	return LinePrice{UnitPrice: unit, Cost: unit * totalArea}
}

// PriceFinish prices an optional finish, either a flat per-unit price or per
// area through its tier set.
func PriceFinish(f *Finish, quantity int, totalArea float64) LinePrice {
	if f == nil {
		return LinePrice{}
	}
	if f.PricingMode == FinishPricingFixed {
		cost := f.FixedPricePerUnit * float64(quantity) * (1 + f.MarkupPct/100)
		return LinePrice{Cost: cost}
	}
	unit := ResolveUnitPrice(totalArea, f.Tiers, f.InterpolationEnabled, f.MarkupPct)
	return LinePrice{UnitPrice: unit, Cost: unit * totalArea}
}

// PriceProduct prices an optional attached product. The fixed, per_item and
// percentage types resolve through the per-quantity override table; per_item
// and percentage deliberately share the same lookup. Anything else is
// treated as per-m² tier pricing.
func PriceProduct(p *Product, quantity int, totalArea float64) LinePrice {
	if p == nil {
		return LinePrice{}
	}
	markup := 1 + p.MarkupPct/100
	switch p.PricingType {
	case ProductPricingFixed:
		cost := (p.InitialPrice + lookupFixedPrice(p.FixedPrices, quantity)) * markup
		return LinePrice{Cost: cost}
	case ProductPricingPerItem, ProductPricingPercentage:
		cost := lookupFixedPrice(p.FixedPrices, quantity) * markup
		return LinePrice{Cost: cost}
	default:
		unit := ResolveUnitPrice(totalArea, p.Tiers, p.InterpolationEnabled, p.MarkupPct)
		return LinePrice{UnitPrice: unit, Cost: unit * totalArea}
	}
}

// lookupFixedPrice returns the exact per-quantity override, 0 when the
// quantity has no row.
func lookupFixedPrice(prices []FixedPrice, quantity int) float64 {
	for _, fp := range prices {
		if fp.Quantity == quantity {
			return fp.Price
		}
	}
	return 0
}
