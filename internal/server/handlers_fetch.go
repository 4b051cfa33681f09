package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/afflab/affiliatehub/backend/internal/fetcher"
)

type fetchRequest struct {
	AffiliateLink string `json:"affiliateLink"`
}

// handleFetchProduct scrapes title/price/image/rating for a pasted
// affiliate link. A failed scrape still returns the detected platform so
// the caller can prefill a manual form.
func (h *httpHandler) handleFetchProduct(c *gin.Context) {
	var request fetchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	link := strings.TrimSpace(request.AffiliateLink)
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "affiliateLink is required"})
		return
	}
	data, err := h.fetcher.Fetch(c.Request.Context(), link)
	if errors.Is(err, fetcher.ErrNoProductData) {
		c.JSON(http.StatusOK, gin.H{"found": false, "platform": data.Platform})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "product": data})
}
