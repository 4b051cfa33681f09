// Package fetcher pulls title/price/image/rating for an affiliate link by
// fetching the product page through a short list of public relay proxies.
// Proxies are tried sequentially, each under its own timeout, and the
// first response with parseable content of non-trivial length wins.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

const (
	// attemptTimeout bounds each proxy attempt.
	attemptTimeout = 8 * time.Second
	// minContentLength filters out proxy error pages and stubs.
	minContentLength = 500
)

// ErrNoProductData means every proxy failed or nothing parseable came back.
var ErrNoProductData = errors.New("fetcher: no product data found")

// proxyURL builds one relay URL for the target page.
type proxyURL func(target string) string

var defaultProxies = []proxyURL{
	func(target string) string {
		return "https://api.allorigins.win/raw?url=" + url.QueryEscape(target)
	},
	func(target string) string {
		return "https://corsproxy.io/?" + url.QueryEscape(target)
	},
	func(target string) string {
		return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
	},
	func(target string) string {
		return "https://thingproxy.freeboard.io/fetch/" + target
	},
}

// ProductData is the parsed result of one product page.
type ProductData struct {
	Title    string           `json:"title"`
	Price    string           `json:"price"`
	Image    string           `json:"image"`
	Rating   string           `json:"rating"`
	Platform catalog.Platform `json:"platform"`
}

// ServiceConfig describes a fetcher. Proxies is overridable for tests.
type ServiceConfig struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	Proxies    []proxyURL
}

// Service fetches and parses product pages.
type Service struct {
	httpClient *http.Client
	logger     *zap.Logger
	proxies    []proxyURL
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	proxies := cfg.Proxies
	if proxies == nil {
		proxies = defaultProxies
	}
	return &Service{httpClient: httpClient, logger: logger, proxies: proxies}
}

// NewProxyList wraps raw relay prefixes into proxy builders. Used by tests
// to point the service at a local server.
func NewProxyList(prefixes ...string) []proxyURL {
	proxies := make([]proxyURL, 0, len(prefixes))
	for _, prefix := range prefixes {
		p := prefix
		proxies = append(proxies, func(target string) string {
			return p + url.QueryEscape(target)
		})
	}
	return proxies
}

// Fetch resolves the affiliate link and tries each proxy in order. A nil
// error always carries usable data; ErrNoProductData when every attempt
// came up empty.
func (s *Service) Fetch(ctx context.Context, affiliateLink string) (ProductData, error) {
	platform := catalog.DetectPlatform(affiliateLink)
	target := resolveAffiliateLink(affiliateLink)

	for _, proxy := range s.proxies {
		html, err := s.fetchOnce(ctx, proxy(target))
		if err != nil {
			s.logger.Debug("proxy attempt failed", zap.Error(err))
			continue
		}
		if data, ok := parseProductHTML(html, platform); ok {
			data.Platform = platform
			return data, nil
		}
	}
	return ProductData{Platform: platform}, ErrNoProductData
}

func (s *Service) fetchOnce(ctx context.Context, requestURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", err
	}
	request.Header.Set("Accept", "text/html,application/xhtml+xml")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", errors.New("fetcher: non-ok proxy status")
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if len(body) <= minContentLength {
		return "", errors.New("fetcher: content too short")
	}
	return string(body), nil
}

// resolveAffiliateLink maps a shortened affiliate link to a fetchable URL.
// The known redirectors (amzn.to, s.click.aliexpress) resolve server-side
// when fetched through a relay, so only whitespace needs trimming.
func resolveAffiliateLink(link string) string {
	return strings.TrimSpace(link)
}
