package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/mirror"
)

// handleSyncFromCloud pulls products then settings from the remote
// endpoint, replacing the local collections. Called once at dashboard
// load. Failure leaves local data standing and reports a warning outcome
// rather than an error status.
func (h *httpHandler) handleSyncFromCloud(c *gin.Context) {
	err := h.mirror.SyncAllFromCloud(c.Request.Context())
	if errors.Is(err, mirror.ErrNotConfigured) {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "not_configured"})
		return
	}
	if err != nil {
		h.logger.Warn("cloud sync failed, using local data", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "sync_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleSyncSubscribers replaces the local subscriber list with the
// remote sheet rows. The sheet is authoritative for subscribers.
func (h *httpHandler) handleSyncSubscribers(c *gin.Context) {
	count, err := h.mirror.PullSubscribers(c.Request.Context())
	if errors.Is(err, mirror.ErrNotConfigured) {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "not_configured"})
		return
	}
	if err != nil {
		h.logger.Warn("subscriber sync failed, using local data", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "sync_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": count})
}
