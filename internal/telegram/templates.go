package telegram

import (
	"fmt"
	"strings"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

// PostStyle selects one of the channel post layouts.
type PostStyle string

const (
	StyleClean    PostStyle = "clean"
	StyleDetailed PostStyle = "detailed"
	StyleUrgent   PostStyle = "urgent"
	StyleSimple   PostStyle = "simple"
)

// ComposePost renders a product into channel Markdown using the given
// style. Unknown styles fall back to clean.
func ComposePost(product catalog.Product, style PostStyle) string {
	switch style {
	case StyleDetailed:
		platform := string(product.Platform)
		if platform == "" {
			platform = "Online"
		}
		return fmt.Sprintf("✨ *%s*\n\n💵 Price: *$%s*\n⭐ Rating: %s/5\n📦 Platform: %s\n\n🔗 [Get It Here](%s)\n\n#deals #shopping #recommended",
			EscapeMarkdown(Truncate(product.Title, 80)), product.Price, product.Rating, platform, product.AffiliateLink)
	case StyleUrgent:
		return fmt.Sprintf("🔥 *HOT FIND!*\n\n%s\n\n💰 Only *$%s*!\n\n⚡ [Grab It Now](%s)",
			EscapeMarkdown(Truncate(product.Title, 70)), product.Price, product.AffiliateLink)
	case StyleSimple:
		return fmt.Sprintf("%s - *$%s*\n👉 %s",
			EscapeMarkdown(Truncate(product.Title, 80)), product.Price, product.AffiliateLink)
	default:
		return fmt.Sprintf("*%s*\n\n💰 *$%s*\n\n👉 [View Product](%s)",
			EscapeMarkdown(Truncate(product.Title, 100)), product.Price, product.AffiliateLink)
	}
}

// markdownSpecials are the characters legacy Markdown parse mode treats
// as formatting; anything else passes through untouched.
const markdownSpecials = "_*[]`"

// EscapeMarkdown backslash-escapes Telegram Markdown control characters.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate shortens a title to max runes with an ellipsis.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
