package fetcher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

const defaultFetchedRating = "4.5"

var numberPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// parseProductHTML extracts product data from a page. Open Graph meta tags
// are the most reliable source and are read first; platform-specific
// selectors fill the gaps. Returns ok when at least a title or image was
// found.
func parseProductHTML(html string, platform catalog.Platform) (ProductData, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ProductData{}, false
	}

	data := ProductData{Rating: defaultFetchedRating}

	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		data.Title = strings.TrimSpace(content)
	}
	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		data.Image = content
	}
	if content, ok := doc.Find(`meta[property="product:price:amount"]`).Attr("content"); ok {
		data.Price = content
	}

	switch platform {
	case catalog.PlatformAliexpress:
		if data.Title == "" {
			data.Title = firstText(doc, "h1", ".product-title")
		}
		if data.Price == "" {
			data.Price = extractPrice(firstText(doc, ".product-price-value", `[class*="price"]`))
		}
	case catalog.PlatformAmazon:
		if data.Title == "" {
			data.Title = firstText(doc, "#productTitle", "#title")
		}
		if data.Price == "" {
			data.Price = extractPrice(firstText(doc, ".a-price .a-offscreen", "#priceblock_ourprice"))
		}
		if data.Image == "" {
			data.Image = firstAttr(doc, "src", "#landingImage", "#imgBlkFront")
		}
	case catalog.PlatformEbay:
		if data.Title == "" {
			data.Title = firstText(doc, "h1.x-item-title__mainTitle")
		}
		if data.Price == "" {
			data.Price = extractPrice(firstText(doc, ".x-price-primary"))
		}
	}

	ratingText := firstText(doc, `[class*="rating"]`, `[class*="star"]`)
	if match := numberPattern.FindString(ratingText); match != "" {
		data.Rating = match
	}

	if data.Title == "" && data.Image == "" {
		return ProductData{}, false
	}
	return data, true
}

// extractPrice pulls the first numeric run out of text like "US $1.99".
func extractPrice(text string) string {
	return numberPattern.FindString(text)
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(selection.Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, selector := range selectors {
		if value, ok := doc.Find(selector).First().Attr(attr); ok && value != "" {
			return value
		}
	}
	return ""
}
