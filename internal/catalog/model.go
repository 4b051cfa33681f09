// Package catalog defines the domain records managed by the hub: affiliate
// products, mailing-list subscribers, settings, counters and broadcast history.
package catalog

import "strings"

// Platform identifies the marketplace an affiliate link points at.
type Platform string

const (
	PlatformAmazon     Platform = "amazon"
	PlatformEbay       Platform = "ebay"
	PlatformAliexpress Platform = "aliexpress"
	PlatformClickbank  Platform = "clickbank"
	PlatformOther      Platform = "other"
)

// Category buckets a product for hashtags and ranking.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryBeauty      Category = "beauty"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategoryToys        Category = "toys"
	CategorySports      Category = "sports"
	CategoryOther       Category = "other"
)

// Product is an affiliate listing. Price and rating are kept as decimal
// strings exactly as entered; parsing happens only at scoring time.
// Selected is ephemeral UI state persisted alongside the record.
type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Price         string   `json:"price"`
	Rating        string   `json:"rating"`
	Platform      Platform `json:"platform"`
	Category      Category `json:"category"`
	Image         string   `json:"image,omitempty"`
	AffiliateLink string   `json:"affiliateLink"`
	CreatedAt     string   `json:"createdAt"`
	Selected      bool     `json:"selected"`
}

// Subscriber is a mailing-list entry. Email is normalized to lowercase on
// insert and uniqueness is enforced on the normalized form.
type Subscriber struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	AddedAt string `json:"addedAt"`
}

// Settings is the single configuration record. Saves are full replacements.
type Settings struct {
	GoogleScriptURL     string `json:"googleScriptUrl,omitempty"`
	AffiliateDisclosure string `json:"affiliateDisclosure,omitempty"`
	UnsubscribeLink     string `json:"unsubscribeLink,omitempty"`
	TelegramBotToken    string `json:"telegramBotToken,omitempty"`
	TelegramChannelID   string `json:"telegramChannelId,omitempty"`
}

// Stats holds monotonically increasing broadcast counters.
type Stats struct {
	EmailsSent    int `json:"emailsSent"`
	FBPosts       int `json:"fbPosts"`
	TelegramPosts int `json:"telegramPosts"`
}

// EmailRecord is one entry of the capped email campaign history.
type EmailRecord struct {
	Subject        string `json:"subject"`
	RecipientCount int    `json:"recipientCount"`
	Template       string `json:"template"`
	SentAt         string `json:"sentAt"`
}

// FBRecord is one entry of the capped Facebook post history.
type FBRecord struct {
	ProductTitle  string `json:"productTitle"`
	Caption       string `json:"caption"`
	ImageURL      string `json:"imageUrl,omitempty"`
	AffiliateLink string `json:"affiliateLink"`
	CreatedAt     string `json:"createdAt"`
}

// DetectPlatform guesses the marketplace from an affiliate URL.
func DetectPlatform(rawURL string) Platform {
	lowered := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lowered, "aliexpress"):
		return PlatformAliexpress
	case strings.Contains(lowered, "amazon"), strings.Contains(lowered, "amzn"):
		return PlatformAmazon
	case strings.Contains(lowered, "ebay"):
		return PlatformEbay
	case strings.Contains(lowered, "clickbank"):
		return PlatformClickbank
	default:
		return PlatformOther
	}
}
