package score

import (
	"testing"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

func TestCalculateWeighsAllFactors(t *testing.T) {
	product := catalog.Product{
		Price:    "0.49",
		Rating:   "5",
		Platform: catalog.PlatformAmazon,
		Category: catalog.CategoryElectronics,
	}
	if got := Calculate(product); got != 95 {
		t.Fatalf("expected score 95, got %d", got)
	}
}

func TestCalculatePriceTiersAreStrict(t *testing.T) {
	base := catalog.Product{
		Rating:   "5",
		Platform: catalog.PlatformAmazon,
		Category: catalog.CategoryElectronics,
	}

	cases := []struct {
		price    string
		expected int
	}{
		{"0.50", 95},
		{"0.51", 92},
		{"1.00", 92},
		{"1.01", 90},
		{"1.50", 90},
		{"1.51", 87},
		{"9.99", 87},
	}
	for _, testCase := range cases {
		product := base
		product.Price = testCase.price
		if got := Calculate(product); got != testCase.expected {
			t.Fatalf("price %s: expected %d, got %d", testCase.price, testCase.expected, got)
		}
	}
}

func TestCalculateFallsBackOnMalformedInput(t *testing.T) {
	product := catalog.Product{
		Price:    "free",
		Rating:   "great",
		Platform: catalog.Platform("myspace"),
		Category: catalog.Category("misc"),
	}
	// price falls back to 0 (top tier), rating to 3, lookups to 60.
	if got := Calculate(product); got != 70 {
		t.Fatalf("expected fallback score 70, got %d", got)
	}
}

func TestCalculateStaysInRange(t *testing.T) {
	products := []catalog.Product{
		{},
		{Price: "999", Rating: "0", Platform: catalog.PlatformOther, Category: catalog.CategoryOther},
		{Price: "0.01", Rating: "5", Platform: catalog.PlatformAmazon, Category: catalog.CategoryElectronics},
	}
	for _, product := range products {
		got := Calculate(product)
		if got < 0 || got > 100 {
			t.Fatalf("score out of range for %#v: %d", product, got)
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	product := catalog.Product{
		Price:    "1.25",
		Rating:   "4.5",
		Platform: catalog.PlatformEbay,
		Category: catalog.CategoryBeauty,
	}
	first := Calculate(product)
	for i := 0; i < 10; i++ {
		if got := Calculate(product); got != first {
			t.Fatalf("expected stable score %d, got %d", first, got)
		}
	}
}

func TestColorBands(t *testing.T) {
	cases := []struct {
		value    int
		expected string
	}{
		{100, "#2ed573"},
		{80, "#2ed573"},
		{79, "#ffa502"},
		{60, "#ffa502"},
		{59, "#ff4757"},
		{0, "#ff4757"},
	}
	for _, testCase := range cases {
		if got := Color(testCase.value); got != testCase.expected {
			t.Fatalf("value %d: expected %s, got %s", testCase.value, testCase.expected, got)
		}
	}
}
