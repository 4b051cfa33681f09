package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/afflab/affiliatehub/backend/internal/email"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
)

type campaignRequest struct {
	Template string `json:"template"`
	Subject  string `json:"subject"`
	Intro    string `json:"intro"`
	Brand    string `json:"brand"`
	To       string `json:"to"`
}

func (r campaignRequest) draft() email.CampaignDraft {
	return email.CampaignDraft{
		Template: email.TemplateName(r.Template),
		Subject:  r.Subject,
		Intro:    r.Intro,
		Brand:    r.Brand,
	}
}

func (h *httpHandler) handleEmailPreview(c *gin.Context) {
	var request campaignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	htmlBody, err := h.campaigns.Preview(c.Request.Context(), request.draft())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": htmlBody})
}

func (h *httpHandler) handleEmailTest(c *gin.Context) {
	var request campaignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	recipient := strings.TrimSpace(request.To)
	if !strings.Contains(recipient, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid recipient email is required"})
		return
	}
	err := h.campaigns.SendTest(c.Request.Context(), request.draft(), recipient)
	if errors.Is(err, mirror.ErrNotConfigured) {
		c.JSON(http.StatusConflict, gin.H{"error": "script endpoint is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleEmailSendAll(c *gin.Context) {
	var request campaignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(request.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}
	result, err := h.campaigns.SendToAll(c.Request.Context(), request.draft())
	switch {
	case errors.Is(err, email.ErrNoSubscribers):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no subscribers to send to"})
		return
	case errors.Is(err, mirror.ErrNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "script endpoint is not configured"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleEmailResume(c *gin.Context) {
	result, err := h.campaigns.Resume(c.Request.Context())
	if errors.Is(err, mirror.ErrNotConfigured) {
		c.JSON(http.StatusConflict, gin.H{"error": "script endpoint is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleCampaignStatus(c *gin.Context) {
	status, err := h.campaigns.Status(c.Request.Context())
	if errors.Is(err, mirror.ErrNotConfigured) {
		c.JSON(http.StatusConflict, gin.H{"error": "script endpoint is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
