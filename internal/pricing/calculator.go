package pricing

import "math"

// CalculateStorformatPrice computes one storformat quote from entities that
// carry their own tier sets.
//
// The function never fails: incomplete or malformed input (negative
// dimensions, empty tier sets, missing finish/product) degrades to
// zero-valued costs so a price preview can never crash a checkout flow.
func CalculateStorformatPrice(req QuoteRequest) QuoteResult {
	widthMM := math.Max(req.WidthMM, 0)
	heightMM := math.Max(req.HeightMM, 0)
	quantity := req.Quantity
	if quantity < 0 {
		quantity = 0
	}

	areaM2 := widthMM * heightMM / 1_000_000
	totalAreaM2 := areaM2 * float64(quantity)

	material := PriceMaterial(req.Material, totalAreaM2)
	finish := PriceFinish(req.Finish, quantity, totalAreaM2)
	product := PriceProduct(req.Product, quantity, totalAreaM2)

	subtotal := material.Cost + finish.Cost + product.Cost
	total := roundToStep(subtotal*(1+req.Config.GlobalMarkupPct/100), req.Config.RoundingStep)

	// The floor is applied after rounding and wins over it verbatim; a
	// floored total is deliberately not re-rounded to the step.
	if minPrice := minimumPrice(req.Material, req.Product); total < minPrice {
		total = minPrice
	}

	return QuoteResult{
		AreaM2:               areaM2,
		TotalAreaM2:          totalAreaM2,
		MaterialPricePerArea: material.UnitPrice,
		FinishPricePerArea:   finish.UnitPrice,
		ProductPricePerArea:  product.UnitPrice,
		MaterialCost:         material.Cost,
		FinishCost:           finish.Cost,
		ProductCost:          product.Cost,
		TotalPrice:           total,
		Split:                splitRecommendation(req.Material, widthMM, heightMM),
	}
}

// CalculateStorformatM2Price computes the same quote from the price-table
// representation: explicit per-m² breakpoint rows for the material and a
// single price row for the finish. The rows are mapped onto the entities and
// handed to the one tier resolver, so both entry points share one
// implementation.
func CalculateStorformatM2Price(req QuoteRequestM2) QuoteResult {
	material := req.Material
	material.Tiers = req.MaterialPrices

	finish := req.Finish
	if finish != nil && req.FinishPrice != nil {
		f := *finish
		f.PricingMode = req.FinishPrice.PricingMode
		f.FixedPricePerUnit = req.FinishPrice.FixedPrice
		if f.PricingMode != FinishPricingFixed {
			f.Tiers = []Tier{{PricePerArea: req.FinishPrice.PricePerArea}}
		}
		finish = &f
	}

	return CalculateStorformatPrice(QuoteRequest{
		WidthMM:  req.WidthMM,
		HeightMM: req.HeightMM,
		Quantity: req.Quantity,
		Material: material,
		Finish:   finish,
		Product:  req.Product,
		Config:   req.Config,
	})
}

// minimumPrice picks the floor for the whole quote. A set material floor
// takes precedence over the product's.
func minimumPrice(m Material, p *Product) float64 {
	if m.MinPrice != 0 {
		return m.MinPrice
	}
	if p != nil {
		return p.MinPrice
	}
	return 0
}

// roundToStep rounds half-up to the nearest multiple of step. A non-positive
// step leaves the value untouched rather than dividing by zero.
func roundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step+0.5) * step
}

// splitRecommendation reports how an oversized job could be produced as
// several pieces. Only advisory: the quote is still priced off the full
// requested area.
func splitRecommendation(m Material, widthMM, heightMM float64) *SplitInfo {
	if !m.AllowSplit || m.MaxWidthMM <= 0 || m.MaxHeightMM <= 0 {
		return nil
	}
	if widthMM <= m.MaxWidthMM && heightMM <= m.MaxHeightMM {
		return nil
	}

	piecesWide := int(math.Ceil(widthMM / m.MaxWidthMM))
	if piecesWide < 1 {
		piecesWide = 1
	}
	piecesHigh := int(math.Ceil(heightMM / m.MaxHeightMM))
	if piecesHigh < 1 {
		piecesHigh = 1
	}

	return &SplitInfo{
		IsSplit:     true,
		PiecesWide:  piecesWide,
		PiecesHigh:  piecesHigh,
		TotalPieces: piecesWide * piecesHigh,
	}
}
