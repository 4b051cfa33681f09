package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/afflab/affiliatehub/backend/internal/share"
)

type shareComposeRequest struct {
	Platform string `json:"platform"`
	Style    string `json:"style"`
	Hashtags string `json:"hashtags"`
}

// handleShareCompose renders copy-paste share text for the selected
// products. Facebook and Twitter use the first selected product; the
// list platforms use all of them.
func (h *httpHandler) handleShareCompose(c *gin.Context) {
	var request shareComposeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	products := h.store.SelectedProducts(c.Request.Context())
	if len(products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no products selected"})
		return
	}

	switch request.Platform {
	case "facebook":
		caption := share.FacebookCaption(products[0], share.FBStyle(request.Style), request.Hashtags)
		c.JSON(http.StatusOK, share.Composition{Text: caption})
	case "instagram":
		c.JSON(http.StatusOK, share.Composition{Text: share.InstagramCaption(products)})
	case "whatsapp":
		c.JSON(http.StatusOK, share.WhatsApp(products))
	case "twitter":
		c.JSON(http.StatusOK, share.Twitter(products[0]))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform"})
	}
}
