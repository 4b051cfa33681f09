// Package share composes ready-to-paste captions and deep links for the
// platforms the hub cannot post to directly. Pure string formatting over
// the selected products; no network calls.
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

// FBStyle selects one of the Facebook caption layouts.
type FBStyle string

const (
	FBStyleDeal     FBStyle = "deal"
	FBStyleQuestion FBStyle = "question"
	FBStyleUrgency  FBStyle = "urgency"
	FBStyleSimple   FBStyle = "simple"
)

var categoryHashtags = map[catalog.Category]string{
	catalog.CategoryElectronics: "#tech #gadgets",
	catalog.CategoryFashion:     "#fashion #style",
	catalog.CategoryBeauty:      "#beauty #skincare",
	catalog.CategoryHome:        "#homedecor #home",
	catalog.CategoryToys:        "#toys #fun",
	catalog.CategorySports:      "#fitness #sports",
	catalog.CategoryOther:       "#deals #shopping",
}

// FacebookCaption renders one product into a post caption. The affiliate
// link is intentionally absent: it goes in the comments.
func FacebookCaption(product catalog.Product, style FBStyle, customHashtags string) string {
	base, ok := categoryHashtags[product.Category]
	if !ok {
		base = "#deals"
	}
	hashtags := strings.TrimSpace(base + " " + customHashtags)

	switch style {
	case FBStyleQuestion:
		return fmt.Sprintf("Have you seen this? 👀\n\n%s\n\nIt's only $%s! 🤯\n\nWould you try it? Drop a 🙋 below!\n\n%s",
			product.Title, product.Price, hashtags)
	case FBStyleUrgency:
		return fmt.Sprintf("⏰ LIMITED TIME ⏰\n\n%s\n\n🚨 Just $%s - Won't last!\n⭐ %s/5 rating\n\nLink in comments 👇\n\n%s #hurry",
			product.Title, product.Price, product.Rating, hashtags)
	case FBStyleSimple:
		return fmt.Sprintf("%s\n\nPrice: $%s\nRating: ⭐ %s\n\nLink in comments 👇\n\n%s",
			product.Title, product.Price, product.Rating, hashtags)
	default:
		return fmt.Sprintf("🔥 HOT DEAL ALERT! 🔥\n\n%s\n\n💰 Only $%s!\n⭐ %s star rating\n\n👉 Grab yours before it's gone!\n🔗 Link in comments\n\n%s #sale",
			product.Title, product.Price, product.Rating, hashtags)
	}
}

// InstagramCaption renders a numbered list pointing at the bio link.
func InstagramCaption(products []catalog.Product) string {
	var b strings.Builder
	for i, product := range products {
		fmt.Fprintf(&b, "%d. %s\n💰 $%s\n🔗 Link in bio\n\n", i+1, product.Title, product.Price)
	}
	b.WriteString("#deals #shopping #musthave #affordable #onlineshopping")
	return b.String()
}

// Composition is share text paired with an optional deep link that opens
// the target platform with the text prefilled.
type Composition struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// WhatsApp renders the full product list with affiliate links and a wa.me
// prefill link.
func WhatsApp(products []catalog.Product) Composition {
	var b strings.Builder
	b.WriteString("🛍️ Check out these finds!\n\n")
	for i, product := range products {
		fmt.Fprintf(&b, "%d. %s\n   💰 $%s\n   🔗 %s\n\n",
			i+1, truncate(product.Title, 50), product.Price, product.AffiliateLink)
	}
	text := b.String()
	return Composition{
		Text: text,
		Link: "https://wa.me/?text=" + url.QueryEscape(text),
	}
}

// Twitter renders the first product into a tweet with an intent link.
func Twitter(product catalog.Product) Composition {
	text := fmt.Sprintf("%s\n\n💰 $%s\n\n%s\n\n#deals #shopping",
		truncate(product.Title, 100), product.Price, product.AffiliateLink)
	return Composition{
		Text: text,
		Link: "https://twitter.com/intent/tweet?text=" + url.QueryEscape(text),
	}
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
