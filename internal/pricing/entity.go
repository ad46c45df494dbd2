package pricing

// FinishPricingMode selects how a finish line is priced.
type FinishPricingMode string

const (
	FinishPricingFixed   FinishPricingMode = "fixed"
	FinishPricingPerArea FinishPricingMode = "per_area"
)

// ProductPricingType selects how a product line is priced. Unrecognized
// values fall back to per-m² tier pricing.
type ProductPricingType string

const (
	ProductPricingFixed      ProductPricingType = "fixed"
	ProductPricingPerItem    ProductPricingType = "per_item"
	ProductPricingPercentage ProductPricingType = "percentage"
	ProductPricingM2         ProductPricingType = "m2"
)

// Material is the substrate a storformat job is printed on. Always priced
// per m² through its tier set. MinPrice of 0 means no floor. MaxWidthMM,
// MaxHeightMM and AllowSplit govern the oversized-job split recommendation.
type Material struct {
	ID                   string
	Name                 string
	Tiers                []Tier
	InterpolationEnabled bool
	MarkupPct            float64
	MinPrice             float64
	MaxWidthMM           float64
	MaxHeightMM          float64
	AllowSplit           bool
}

// Finish is an optional surface treatment (lamination, cutting, eyelets).
type Finish struct {
	ID                   string
	Name                 string
	PricingMode          FinishPricingMode
	FixedPricePerUnit    float64
	Tiers                []Tier
	InterpolationEnabled bool
	MarkupPct            float64
}

// FixedPrice is an exact per-quantity price override for non-area product
// pricing types.
type FixedPrice struct {
	Quantity int
	Price    float64
}

// Product is an optional configured product attached to the job (mounting
// sets, stands, frames).
type Product struct {
	ID                   string
	Name                 string
	PricingType          ProductPricingType
	InitialPrice         float64
	PercentageMarkup     float64
	FixedPrices          []FixedPrice
	Tiers                []Tier
	InterpolationEnabled bool
	MarkupPct            float64
	MinPrice             float64
}

// QuoteConfig carries the tenant-level pricing knobs.
type QuoteConfig struct {
	RoundingStep    float64
	GlobalMarkupPct float64
	Quantities      []int
}

// QuoteRequest is one storformat price computation, entity-embedded-tiers
// variant. Finish and Product are optional.
type QuoteRequest struct {
	WidthMM  float64
	HeightMM float64
	Quantity int
	Material Material
	Finish   *Finish
	Product  *Product
	Config   QuoteConfig
}

// FinishPriceRow is the explicit finish price row of the price-table
// variant: either a fixed per-unit price or a single per-m² rate.
type FinishPriceRow struct {
	PricingMode  FinishPricingMode
	FixedPrice   float64
	PricePerArea float64
}

// QuoteRequestM2 is the price-table variant: entities carry only markup and
// min-price metadata, area prices come from explicit breakpoint rows.
type QuoteRequestM2 struct {
	WidthMM        float64
	HeightMM       float64
	Quantity       int
	Material       Material
	Finish         *Finish
	Product        *Product
	MaterialPrices []Tier
	FinishPrice    *FinishPriceRow
	Config         QuoteConfig
}

// SplitInfo recommends producing an oversized job as several physically
// smaller pieces. Advisory only, it never changes the price.
type SplitInfo struct {
	IsSplit     bool
	PiecesWide  int
	PiecesHigh  int
	TotalPieces int
}

// QuoteResult is the full breakdown of one computation.
type QuoteResult struct {
	AreaM2               float64
	TotalAreaM2          float64
	MaterialPricePerArea float64
	FinishPricePerArea   float64
	ProductPricePerArea  float64
	MaterialCost         float64
	FinishCost           float64
	ProductCost          float64
	TotalPrice           float64
	Split                *SplitInfo
}
