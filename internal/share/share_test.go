package share

import (
	"strings"
	"testing"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

func sampleProduct() catalog.Product {
	return catalog.Product{
		ID:            "p_1",
		Title:         "Wireless Earbuds",
		Price:         "24.99",
		Rating:        "4.5",
		Category:      catalog.CategoryElectronics,
		AffiliateLink: "https://amzn.to/abc",
	}
}

func TestFacebookCaptionStyles(t *testing.T) {
	product := sampleProduct()

	deal := FacebookCaption(product, FBStyleDeal, "")
	if !strings.Contains(deal, "HOT DEAL ALERT") || !strings.Contains(deal, "Link in comments") {
		t.Fatalf("unexpected deal caption: %s", deal)
	}
	if strings.Contains(deal, product.AffiliateLink) {
		t.Fatalf("affiliate link must not appear in the caption")
	}
	if !strings.Contains(deal, "#tech #gadgets") {
		t.Fatalf("expected category hashtags, got %s", deal)
	}

	question := FacebookCaption(product, FBStyleQuestion, "")
	if !strings.Contains(question, "Have you seen this?") {
		t.Fatalf("unexpected question caption: %s", question)
	}

	urgency := FacebookCaption(product, FBStyleUrgency, "")
	if !strings.Contains(urgency, "LIMITED TIME") || !strings.Contains(urgency, "#hurry") {
		t.Fatalf("unexpected urgency caption: %s", urgency)
	}

	simple := FacebookCaption(product, FBStyleSimple, "")
	if !strings.Contains(simple, "Price: $24.99") {
		t.Fatalf("unexpected simple caption: %s", simple)
	}
}

func TestFacebookCaptionAppendsCustomHashtags(t *testing.T) {
	caption := FacebookCaption(sampleProduct(), FBStyleSimple, "#giftideas")
	if !strings.Contains(caption, "#tech #gadgets #giftideas") {
		t.Fatalf("expected custom hashtags appended, got %s", caption)
	}
}

func TestFacebookCaptionUnknownCategoryFallsBack(t *testing.T) {
	product := sampleProduct()
	product.Category = catalog.Category("mystery")
	caption := FacebookCaption(product, FBStyleSimple, "")
	if !strings.Contains(caption, "#deals") {
		t.Fatalf("expected fallback hashtag, got %s", caption)
	}
}

func TestInstagramCaptionNumbersProducts(t *testing.T) {
	second := sampleProduct()
	second.Title = "Phone Stand"
	second.Price = "7.50"

	caption := InstagramCaption([]catalog.Product{sampleProduct(), second})
	if !strings.Contains(caption, "1. Wireless Earbuds") || !strings.Contains(caption, "2. Phone Stand") {
		t.Fatalf("expected numbered list, got %s", caption)
	}
	if !strings.Contains(caption, "Link in bio") {
		t.Fatalf("expected bio pointer, got %s", caption)
	}
	if strings.Contains(caption, "https://amzn.to/abc") {
		t.Fatalf("instagram caption must not carry raw links")
	}
}

func TestWhatsAppIncludesLinksAndPrefillURL(t *testing.T) {
	composition := WhatsApp([]catalog.Product{sampleProduct()})
	if !strings.Contains(composition.Text, "https://amzn.to/abc") {
		t.Fatalf("expected affiliate link in text, got %s", composition.Text)
	}
	if !strings.HasPrefix(composition.Link, "https://wa.me/?text=") {
		t.Fatalf("unexpected prefill link: %s", composition.Link)
	}
	if strings.Contains(composition.Link, " ") {
		t.Fatalf("prefill link must be query-escaped: %s", composition.Link)
	}
}

func TestTwitterTruncatesLongTitles(t *testing.T) {
	product := sampleProduct()
	product.Title = strings.Repeat("Very Long Product Name ", 10)

	composition := Twitter(product)
	if !strings.Contains(composition.Text, "...") {
		t.Fatalf("expected truncated title, got %s", composition.Text)
	}
	if !strings.HasPrefix(composition.Link, "https://twitter.com/intent/tweet?text=") {
		t.Fatalf("unexpected intent link: %s", composition.Link)
	}
}
