package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"team_inbox/internal/channel"
	"team_inbox/internal/config"
	"team_inbox/internal/domain"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

const signatureHeader = "X-Provider-Signature"

// WebhookHandler is the provider-facing ingress: inbound messages and status
// receipts arrive here as form-encoded POSTs.
type WebhookHandler struct {
	pipeline service.PipelineService
	messages service.MessageService
	registry *channel.Registry
	cfg      config.ProviderConfig
	log      logger.Logger
}

func NewWebhookHandler(
	pipeline service.PipelineService,
	messages service.MessageService,
	registry *channel.Registry,
	cfg config.ProviderConfig,
	log logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		messages: messages,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	ch := domain.Channel(c.Param("channel"))

	integration, err := h.registry.Integration(ch)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form payload"})
		return
	}
	form := c.Request.PostForm

	// An unset secret disables validation for local development.
	if h.cfg.WebhookSecret != "" {
		signature := c.GetHeader(signatureHeader)
		if !integration.ValidateWebhook(h.callbackURL(c), form, signature) {
			h.log.Warn("Webhook signature validation failed", "channel", ch, "client_ip", c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	// Receipts update an existing message and never enter the pipeline.
	if channel.IsStatusCallback(form) {
		externalID, status, ok := channel.ParseStatusCallback(form)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized status callback"})
			return
		}

		if err := h.messages.UpdateStatusByExternalID(c.Request.Context(), ch, externalID, status); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
		return
	}

	raws, err := integration.ProcessWebhook(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(raws) == 1 {
		result := h.pipeline.ProcessMessage(c.Request.Context(), raws[0])
		if !result.Success {
			c.JSON(http.StatusUnprocessableEntity, result)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	batch := h.pipeline.ProcessBatch(c.Request.Context(), raws)
	if batch.Failed > 0 && batch.Processed == 0 {
		c.JSON(http.StatusUnprocessableEntity, batch)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Setup (re)registers the callback URL for one channel with the provider.
// Registration is idempotent on the provider side, so repeat calls are safe.
func (h *WebhookHandler) Setup(c *gin.Context) {
	ch := domain.Channel(c.Param("channel"))

	integration, err := h.registry.Integration(ch)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}

	if h.cfg.CallbackURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no callback URL configured"})
		return
	}

	callbackURL := strings.TrimRight(h.cfg.CallbackURL, "/") + "/webhooks/" + string(ch)
	webhookCfg := domain.WebhookConfig{
		CallbackURL: callbackURL,
		StatusURL:   callbackURL,
	}
	if err := integration.SetupWebhook(c.Request.Context(), webhookCfg); err != nil {
		c.Error(err)
		return
	}

	h.log.Info("Webhook registered", "channel", ch, "url", callbackURL)
	c.JSON(http.StatusOK, gin.H{"channel": ch, "callback_url": callbackURL})
}

// callbackURL reconstructs the exact URL the provider signed. The configured
// base wins over request reconstruction behind proxies.
func (h *WebhookHandler) callbackURL(c *gin.Context) string {
	if h.cfg.CallbackURL != "" {
		return strings.TrimRight(h.cfg.CallbackURL, "/") + c.Request.URL.Path
	}

	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}
