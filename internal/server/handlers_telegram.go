package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/telegram"
)

// channelClient builds a bot client from the stored settings. Returns nil
// when the settings hold no credentials.
func (h *httpHandler) channelClient(c *gin.Context) *telegram.Client {
	settings := h.store.Settings(c.Request.Context())
	client, err := telegram.NewClient(telegram.ClientConfig{
		Logger:    h.logger,
		BaseURL:   h.telegramBaseURL,
		BotToken:  settings.TelegramBotToken,
		ChannelID: settings.TelegramChannelID,
	})
	if err != nil {
		return nil
	}
	return client
}

func (h *httpHandler) handleTelegramTest(c *gin.Context) {
	client := h.channelClient(c)
	if client == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "bot token and channel id are not configured"})
		return
	}
	info, err := client.TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bot": info})
}

type telegramBroadcastRequest struct {
	Style         string `json:"style"`
	IncludeImages bool   `json:"includeImages"`
}

// handleTelegramBroadcast posts every selected product to the channel and
// records successful posts in the stats counter.
func (h *httpHandler) handleTelegramBroadcast(c *gin.Context) {
	var request telegramBroadcastRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	client := h.channelClient(c)
	if client == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "bot token and channel id are not configured"})
		return
	}
	products := h.store.SelectedProducts(c.Request.Context())
	if len(products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no products selected"})
		return
	}
	broadcaster, err := telegram.NewBroadcaster(telegram.BroadcasterConfig{
		Sender: client,
		Logger: h.logger,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast setup failed"})
		return
	}
	result, err := broadcaster.Broadcast(c.Request.Context(), products, telegram.PostStyle(request.Style), request.IncludeImages)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if result.Posted > 0 {
		if err := h.store.AddTelegramPosts(c.Request.Context(), result.Posted); err != nil {
			h.logger.Warn("telegram stats update failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, result)
}
