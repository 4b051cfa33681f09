package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

// ----- subscribers -----

func (h *httpHandler) handleListSubscribers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subscribers": h.store.Subscribers(c.Request.Context())})
}

type addSubscriberPayload struct {
	Email string `json:"email"`
}

func (h *httpHandler) handleAddSubscriber(c *gin.Context) {
	var request addSubscriberPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	address := strings.TrimSpace(request.Email)
	if !strings.Contains(address, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
		return
	}

	subscriber, err := h.store.AddSubscriber(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("failed to add subscriber", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
		return
	}
	if subscriber == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_email"})
		return
	}

	// Mirror the new address to the remote sheet without holding up the
	// response; the sheet catches up on the next pull if this fails. The
	// detached context must be captured before the handler returns: gin
	// recycles c and its Request for the next request on this connection.
	pushCtx := contextWithoutCancel(c)
	go func(ctx context.Context, email string) {
		if err := h.mirror.AddSubscriberRemote(ctx, email); err != nil && !errors.Is(err, mirror.ErrNotConfigured) {
			h.logger.Warn("remote subscriber push failed", zap.Error(err))
		}
	}(pushCtx, subscriber.Email)

	c.JSON(http.StatusCreated, gin.H{"subscriber": subscriber})
}

func (h *httpHandler) handleRemoveSubscriber(c *gin.Context) {
	if err := h.store.RemoveSubscriber(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ----- settings & stats -----

func (h *httpHandler) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.store.Settings(c.Request.Context())})
}

func (h *httpHandler) handleSaveSettings(c *gin.Context) {
	var settings catalog.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.SaveSettings(c.Request.Context(), settings); err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleGetStats(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"stats":           h.store.Stats(ctx),
		"totalProducts":   len(h.store.Products(ctx)),
		"selectedCount":   len(h.store.SelectedProducts(ctx)),
		"subscriberCount": len(h.store.Subscribers(ctx)),
	})
}

// ----- history -----

func (h *httpHandler) handleEmailHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.store.EmailHistory(c.Request.Context())})
}

func (h *httpHandler) handleFBHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.store.FBHistory(c.Request.Context())})
}

func (h *httpHandler) handleSaveFBPost(c *gin.Context) {
	var entry catalog.FBRecord
	if err := c.ShouldBindJSON(&entry); err != nil || entry.Caption == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.AddFBHistory(c.Request.Context(), entry); err != nil {
		h.logger.Error("failed to save post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// ----- backup -----

func (h *httpHandler) handleExport(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ExportAll(c.Request.Context()))
}

func (h *httpHandler) handleImport(c *gin.Context) {
	var backup store.Backup
	if err := c.ShouldBindJSON(&backup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
		return
	}
	if err := h.store.ImportAll(c.Request.Context(), backup); err != nil {
		h.logger.Error("import failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleClearAll(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation_required"})
		return
	}
	if err := h.store.ClearAll(c.Request.Context()); err != nil {
		h.logger.Error("clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
