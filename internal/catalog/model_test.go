package catalog

import "testing"

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url      string
		expected Platform
	}{
		{"https://www.amazon.com/dp/B0TEST", PlatformAmazon},
		{"https://amzn.to/3xYz", PlatformAmazon},
		{"https://s.click.aliexpress.com/e/_abc", PlatformAliexpress},
		{"https://www.ebay.com/itm/123", PlatformEbay},
		{"https://hop.clickbank.net/?vendor=x", PlatformClickbank},
		{"https://example.com/deal", PlatformOther},
		{"HTTPS://WWW.AMAZON.COM/DP/B0TEST", PlatformAmazon},
	}
	for _, testCase := range cases {
		if got := DetectPlatform(testCase.url); got != testCase.expected {
			t.Fatalf("%s: expected %s, got %s", testCase.url, testCase.expected, got)
		}
	}
}

func TestDetectPlatformPrefersAliexpressOverAmazonSubstrings(t *testing.T) {
	// Shortened aliexpress links can route through hosts that also match
	// broader substrings; the aliexpress check runs first.
	if got := DetectPlatform("https://aliexpress.ru/item/amzn-cable"); got != PlatformAliexpress {
		t.Fatalf("expected aliexpress, got %s", got)
	}
}
