package server

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
	"github.com/afflab/affiliatehub/backend/internal/score"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

// productView is a product decorated with its display ranking.
type productView struct {
	catalog.Product
	Score      int    `json:"score"`
	ScoreColor string `json:"scoreColor"`
}

func newProductView(product catalog.Product) productView {
	value := score.Calculate(product)
	return productView{Product: product, Score: value, ScoreColor: score.Color(value)}
}

func (h *httpHandler) handleListProducts(c *gin.Context) {
	platform := c.Query("platform")
	sortBy := c.DefaultQuery("sort", "newest")

	views := []productView{}
	for _, product := range h.store.Products(c.Request.Context()) {
		if platform != "" && platform != "all" && string(product.Platform) != platform {
			continue
		}
		views = append(views, newProductView(product))
	}

	switch sortBy {
	case "score":
		sort.SliceStable(views, func(i, j int) bool { return views[i].Score > views[j].Score })
	case "price-low":
		sort.SliceStable(views, func(i, j int) bool {
			return parsePrice(views[i].Price) < parsePrice(views[j].Price)
		})
	default:
		// Storage order is already newest first.
	}

	c.JSON(http.StatusOK, gin.H{"products": views})
}

func parsePrice(raw string) float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}

func (h *httpHandler) handleAddProduct(c *gin.Context) {
	var draft store.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if draft.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_title"})
		return
	}
	if draft.Price == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_price"})
		return
	}
	if draft.AffiliateLink == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_affiliate_link"})
		return
	}
	if draft.Platform == "" {
		draft.Platform = catalog.DetectPlatform(draft.AffiliateLink)
	}
	if draft.Category == "" {
		draft.Category = catalog.CategoryOther
	}

	product, err := h.store.AddProduct(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("failed to add product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": newProductView(product)})
}

func (h *httpHandler) handleUpdateProduct(c *gin.Context) {
	var patch store.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.UpdateProduct(c.Request.Context(), c.Param("id"), patch); err != nil {
		h.logger.Error("failed to update product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleDeleteProduct(c *gin.Context) {
	if err := h.store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("failed to delete product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type batchDeletePayload struct {
	IDs []string `json:"ids"`
}

func (h *httpHandler) handleBatchDeleteProducts(c *gin.Context) {
	var request batchDeletePayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.DeleteProducts(c.Request.Context(), request.IDs); err != nil {
		h.logger.Error("failed to delete products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": len(request.IDs)})
}

func (h *httpHandler) handleToggleProduct(c *gin.Context) {
	if err := h.store.ToggleProductSelection(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("failed to toggle selection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleSelectAll(c *gin.Context) {
	if err := h.store.SelectAllProducts(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "select_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleDeselectAll(c *gin.Context) {
	if err := h.store.DeselectAllProducts(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deselect_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleSelectedProducts(c *gin.Context) {
	views := []productView{}
	for _, product := range h.store.SelectedProducts(c.Request.Context()) {
		views = append(views, newProductView(product))
	}
	c.JSON(http.StatusOK, gin.H{"products": views})
}
