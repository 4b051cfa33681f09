// Package server exposes the hub over HTTP for the dashboard client.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/email"
	"github.com/afflab/affiliatehub/backend/internal/fetcher"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

const userEmailContextKey = "affhub_user_email"

var (
	errMissingSessions      = errors.New("session issuer dependency required")
	errMissingStore         = errors.New("store dependency required")
	errMissingMirror        = errors.New("mirror dependency required")
	errMissingCampaigns     = errors.New("email campaign dependency required")
	errMissingFetcher       = errors.New("fetcher dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionManager issues and validates the owner's session tokens.
type SessionManager interface {
	Login(ctx context.Context, email string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer to the services behind it.
type Dependencies struct {
	Sessions  SessionManager
	Store     *store.Store
	Mirror    *mirror.Service
	Campaigns *email.Service
	Fetcher   *fetcher.Service
	Logger    *zap.Logger

	// TelegramBaseURL overrides the bot API host; tests point it at a
	// local server. Empty selects the real API.
	TelegramBaseURL string
}

// NewHTTPHandler builds the gin router with all hub routes mounted.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Mirror == nil {
		return nil, errMissingMirror
	}
	if deps.Campaigns == nil {
		return nil, errMissingCampaigns
	}
	if deps.Fetcher == nil {
		return nil, errMissingFetcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:        deps.Sessions,
		store:           deps.Store,
		mirror:          deps.Mirror,
		campaigns:       deps.Campaigns,
		fetcher:         deps.Fetcher,
		telegramBaseURL: deps.TelegramBaseURL,
		logger:          logger,
	}

	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/products", handler.handleListProducts)
	protected.POST("/products", handler.handleAddProduct)
	protected.PATCH("/products/:id", handler.handleUpdateProduct)
	protected.DELETE("/products/:id", handler.handleDeleteProduct)
	protected.POST("/products/batch-delete", handler.handleBatchDeleteProducts)
	protected.POST("/products/:id/toggle", handler.handleToggleProduct)
	protected.POST("/products/select-all", handler.handleSelectAll)
	protected.POST("/products/deselect-all", handler.handleDeselectAll)
	protected.GET("/products/selected", handler.handleSelectedProducts)

	protected.GET("/subscribers", handler.handleListSubscribers)
	protected.POST("/subscribers", handler.handleAddSubscriber)
	protected.DELETE("/subscribers/:id", handler.handleRemoveSubscriber)

	protected.GET("/settings", handler.handleGetSettings)
	protected.PUT("/settings", handler.handleSaveSettings)
	protected.GET("/stats", handler.handleGetStats)

	protected.GET("/history/email", handler.handleEmailHistory)
	protected.GET("/history/fb", handler.handleFBHistory)
	protected.POST("/history/fb", handler.handleSaveFBPost)

	protected.POST("/sync/cloud", handler.handleSyncFromCloud)
	protected.POST("/sync/subscribers", handler.handleSyncSubscribers)

	protected.GET("/backup/export", handler.handleExport)
	protected.POST("/backup/import", handler.handleImport)
	protected.POST("/backup/clear", handler.handleClearAll)

	protected.POST("/email/preview", handler.handleEmailPreview)
	protected.POST("/email/test", handler.handleEmailTest)
	protected.POST("/email/send", handler.handleEmailSendAll)
	protected.POST("/email/resume", handler.handleEmailResume)
	protected.GET("/email/campaign", handler.handleCampaignStatus)

	protected.POST("/telegram/test", handler.handleTelegramTest)
	protected.POST("/telegram/broadcast", handler.handleTelegramBroadcast)

	protected.POST("/share/compose", handler.handleShareCompose)

	protected.POST("/fetch", handler.handleFetchProduct)

	return router, nil
}

type httpHandler struct {
	sessions        SessionManager
	store           *store.Store
	mirror          *mirror.Service
	campaigns       *email.Service
	fetcher         *fetcher.Service
	telegramBaseURL string
	logger          *zap.Logger
}

type loginRequestPayload struct {
	Email string `json:"email"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.sessions.Login(c.Request.Context(), request.Email)
	if err != nil {
		h.logger.Warn("login rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.sessions.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userEmailContextKey, subject)
	c.Next()
}

// contextWithoutCancel detaches background work from the request lifetime
// so fire-and-forget pushes survive the response being written.
func contextWithoutCancel(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
