// Package score ranks products for display. The calculation is a pure
// weighted blend of price tier, rating, platform and category and always
// lands in [0,100]; malformed numeric input falls back to defaults rather
// than failing.
package score

import (
	"math"
	"strconv"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

const (
	defaultRating      = 3
	unknownLookupScore = 60
	weightPrice        = 0.25
	weightRating       = 0.30
	weightPlatform     = 0.25
	weightCategory     = 0.20
)

var platformScores = map[catalog.Platform]float64{
	catalog.PlatformAmazon:     90,
	catalog.PlatformEbay:       80,
	catalog.PlatformAliexpress: 70,
	catalog.PlatformClickbank:  75,
	catalog.PlatformOther:      60,
}

var categoryScores = map[catalog.Category]float64{
	catalog.CategoryElectronics: 85,
	catalog.CategoryBeauty:      80,
	catalog.CategoryFashion:     75,
	catalog.CategoryHome:        70,
	catalog.CategoryToys:        75,
	catalog.CategorySports:      70,
	catalog.CategoryOther:       60,
}

// Calculate returns the 0-100 display score for a product.
func Calculate(product catalog.Product) int {
	price := parseDecimal(product.Price, 0)
	rating := parseDecimal(product.Rating, defaultRating)

	platformScore := unknownLookupScore
	if value, ok := platformScores[product.Platform]; ok {
		platformScore = int(value)
	}
	categoryScore := unknownLookupScore
	if value, ok := categoryScores[product.Category]; ok {
		categoryScore = int(value)
	}

	// Cheaper finds rank higher. Tier comparisons are strict so a price of
	// exactly 1.50 stays in the 80 tier.
	priceScore := 100.0
	switch {
	case price > 1.5:
		priceScore = 70
	case price > 1:
		priceScore = 80
	case price > 0.5:
		priceScore = 90
	}

	ratingScore := (rating / 5) * 100

	weighted := priceScore*weightPrice +
		ratingScore*weightRating +
		float64(platformScore)*weightPlatform +
		float64(categoryScore)*weightCategory

	return int(math.Round(weighted))
}

// Color maps a score to the display color used by product cards.
func Color(value int) string {
	switch {
	case value >= 80:
		return "#2ed573"
	case value >= 60:
		return "#ffa502"
	default:
		return "#ff4757"
	}
}

func parseDecimal(raw string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
