package pricing

import "sort"

// Tier is one breakpoint of a piecewise price-per-area curve. The range
// [FromArea, ToArea] is inclusive on both ends; a nil ToArea means the tier
// is unbounded above. Anchor tiers are valid interpolation endpoints;
// non-anchor tiers with a nonzero markup act as pinned overrides at their
// own band without disturbing the curve elsewhere.
type Tier struct {
	FromArea     float64
	ToArea       *float64
	PricePerArea float64
	IsAnchor     bool
	MarkupPct    float64
}

// Contains reports whether totalArea falls inside the tier's range.
func (t Tier) Contains(totalArea float64) bool {
	if totalArea < t.FromArea {
		return false
	}
	return t.ToArea == nil || totalArea <= *t.ToArea
}

// effectivePrice composes the tier's own markup with the entity-level markup,
// both multiplicative.
func (t Tier) effectivePrice(entityMarkupPct float64) float64 {
	return t.PricePerArea * (1 + t.MarkupPct/100) * (1 + entityMarkupPct/100)
}

// ResolveUnitPrice picks one effective price per m² for totalArea out of a
// tier set.
//
// With interpolation disabled the matching tier wins, falling back to the
// highest tier when no range matches (tier sets should not gap, but a
// missing band must not zero out a checkout). With interpolation enabled,
// anchor tiers define a piecewise-linear curve over FromArea breakpoints;
// a matched anchor, or a matched non-anchor carrying its own markup, always
// beats interpolation. Areas outside the anchor span clamp to the nearest
// anchor's price. Fewer than two anchors degrades to the flat lookup.
//
// An empty tier set resolves to 0.
func ResolveUnitPrice(totalArea float64, tiers []Tier, interpolate bool, entityMarkupPct float64) float64 {
	if len(tiers) == 0 {
		return 0
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FromArea < sorted[j].FromArea
	})

	match := matchTier(sorted, totalArea)

	if !interpolate {
		return flatPrice(sorted, match, entityMarkupPct)
	}

	// An explicit override always wins over interpolation.
	if match != nil && (match.IsAnchor || match.MarkupPct != 0) {
		return match.effectivePrice(entityMarkupPct)
	}

	anchors := anchorTiers(sorted)
	if len(anchors) < 2 {
		return flatPrice(sorted, match, entityMarkupPct)
	}

	first, last := anchors[0], anchors[len(anchors)-1]
	if totalArea <= first.FromArea {
		return first.effectivePrice(entityMarkupPct)
	}
	if totalArea >= last.FromArea {
		return last.effectivePrice(entityMarkupPct)
	}

	lower, upper := first, anchors[1]
	for i := 1; i < len(anchors); i++ {
		if anchors[i].FromArea >= totalArea {
			lower, upper = anchors[i-1], anchors[i]
			break
		}
	}

	span := upper.FromArea - lower.FromArea
	if span <= 0 {
		return lower.effectivePrice(entityMarkupPct)
	}
	t := (totalArea - lower.FromArea) / span
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	lowerPrice := lower.effectivePrice(entityMarkupPct)
	upperPrice := upper.effectivePrice(entityMarkupPct)
	return lowerPrice + t*(upperPrice-lowerPrice)
}

// matchTier returns the first sorted tier whose range contains totalArea.
func matchTier(sorted []Tier, totalArea float64) *Tier {
	for i := range sorted {
		if sorted[i].Contains(totalArea) {
			return &sorted[i]
		}
	}
	return nil
}

// flatPrice is the non-interpolated lookup: the matched tier, or the highest
// tier as fallback.
func flatPrice(sorted []Tier, match *Tier, entityMarkupPct float64) float64 {
	tier := match
	if tier == nil {
		tier = &sorted[len(sorted)-1]
	}
	return tier.effectivePrice(entityMarkupPct)
}

func anchorTiers(sorted []Tier) []Tier {
	var anchors []Tier
	for _, t := range sorted {
		if t.IsAnchor {
			anchors = append(anchors, t)
		}
	}
	return anchors
}
